package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/school"
)

func Test_schoolAPI_establishments(t *testing.T) {
	teacher := createUser(t, "Tea Cher", "school-teacher@test.cd", "pwd", role.RoleTeacher, true)
	admin := createUser(t, "Sch Ool", "school-admin@test.cd", "pwd", role.RoleAdministrator, true)

	var created school.Establishment

	t.Run("create requires the establishment privilege", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, feedback: "insufficient privilege"}
		rec := doRequest(t, http.MethodPost, "/v1/establishments", getToken(t, teacher),
			map[string]string{"name": "Lycée Mobutu"})
		checkEnvelope(t, tt, rec)
	})

	t.Run("administrator template may create", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusCreated, wantOK: true}
		rec := doRequest(t, http.MethodPost, "/v1/establishments", getToken(t, admin),
			map[string]string{"name": "Lycée Mobutu", "address": "12 Av. des Écoles", "email": "INFO@lycee.cd"})
		env := checkEnvelope(t, tt, rec)

		if err := json.Unmarshal(env.Data, &created); err != nil {
			t.Fatalf("decoding establishment: %v", err)
		}
		if created.Email != "info@lycee.cd" {
			t.Errorf("email = %q; want lowercased", created.Email)
		}
	})

	t.Run("any authenticated user may list", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantOK: true}
		rec := doRequest(t, http.MethodGet, "/v1/establishments", getToken(t, teacher), nil)
		env := checkEnvelope(t, tt, rec)

		var out []school.Establishment
		if err := json.Unmarshal(env.Data, &out); err != nil {
			t.Fatalf("decoding establishments: %v", err)
		}
		if len(out) == 0 {
			t.Error("expected the created establishment in the listing")
		}
	})

	t.Run("unknown establishment is 404", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, feedback: school.ErrNotFound.Error()}
		rec := doRequest(t, http.MethodGet, "/v1/establishments/nope", getToken(t, teacher), nil)
		checkEnvelope(t, tt, rec)
	})

	t.Run("classrooms hang off the establishment", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusCreated, wantOK: true}
		rec := doRequest(t, http.MethodPost, "/v1/classrooms", getToken(t, admin),
			map[string]interface{}{"establishment_id": created.ID, "name": "6ème A", "capacity": 40})
		checkEnvelope(t, tt, rec)

		tt = httpTest{wantCode: http.StatusOK, wantOK: true}
		rec = doRequest(t, http.MethodGet, "/v1/establishments/"+created.ID+"/classrooms", getToken(t, teacher), nil)
		env := checkEnvelope(t, tt, rec)

		var rooms []school.Classroom
		if err := json.Unmarshal(env.Data, &rooms); err != nil {
			t.Fatalf("decoding classrooms: %v", err)
		}
		if len(rooms) != 1 {
			t.Errorf("got %d classrooms; want 1", len(rooms))
		}
	})
}

func Test_schoolAPI_commissions(t *testing.T) {
	admin := createUser(t, "Com Admin", "commission-admin@test.cd", "pwd", role.RoleAdministrator, true)
	contact := createUser(t, "Con Tact", "commission-contact@test.cd", "pwd", "", true)

	t.Run("create resolves the admin contact", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusCreated, wantOK: true}
		rec := doRequest(t, http.MethodPost, "/v1/commissions", getToken(t, admin),
			map[string]string{"name": "Discipline", "admin_id": contact.ID})
		env := checkEnvelope(t, tt, rec)

		var c school.Commission
		if err := json.Unmarshal(env.Data, &c); err != nil {
			t.Fatalf("decoding commission: %v", err)
		}
		if c.AdminID != contact.ID {
			t.Errorf("admin_id = %q; want %q", c.AdminID, contact.ID)
		}
	})

	t.Run("listing attaches the admin without password material", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantOK: true}
		rec := doRequest(t, http.MethodGet, "/v1/commissions", getToken(t, admin), nil)
		env := checkEnvelope(t, tt, rec)

		var out []school.Commission
		if err := json.Unmarshal(env.Data, &out); err != nil {
			t.Fatalf("decoding commissions: %v", err)
		}
		if len(out) == 0 {
			t.Fatal("expected the created commission in the listing")
		}
		if out[0].Admin == nil || out[0].Admin.Name != "Con Tact" {
			t.Errorf("admin = %+v; want the contact attached", out[0].Admin)
		}
	})
}
