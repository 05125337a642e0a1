package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/user"
)

func Test_userAPI_login(t *testing.T) {
	createUser(t, "Awa Lu", "login@test.cd", "s3cret!", "", true)
	createUser(t, "Dor Mant", "inactive@test.cd", "s3cret!", "", false)

	body := func(email, pwd string) map[string]string {
		return map[string]string{"email": email, "password": pwd}
	}

	tests := []httpTest{
		{name: "valid credentials", body: body("login@test.cd", "s3cret!"), wantCode: http.StatusOK, wantOK: true},
		{name: "email case-insensitive", body: body("LOGIN@test.cd", "s3cret!"), wantCode: http.StatusOK, wantOK: true},
		{name: "wrong password", body: body("login@test.cd", "nope"), wantCode: http.StatusBadRequest, feedback: "authentication failed"},
		{name: "unknown email", body: body("ghost@test.cd", "s3cret!"), wantCode: http.StatusBadRequest, feedback: "authentication failed"},
		{name: "deactivated account", body: body("inactive@test.cd", "s3cret!"), wantCode: http.StatusForbidden, feedback: "account deactivated"},
		{name: "missing fields", body: map[string]string{}, wantCode: http.StatusBadRequest, feedback: "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodPost, "/v1/users/login", "", tt.body)
			env := checkEnvelope(t, tt, rec)

			if env.Success {
				var data struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(env.Data, &data); err != nil {
					t.Fatalf("decoding login data: %v", err)
				}
				if data.Token == "" {
					t.Error("expected a token")
				}
			}
		})
	}
}

func Test_userAPI_queryGuard(t *testing.T) {
	plain := createUser(t, "No Priv", "plain@test.cd", "pwd", "", true)
	teacher := createUser(t, "Tea Cher", "teacher@test.cd", "pwd", role.RoleTeacher, true)
	manager := createUser(t, "Man Ager", "manager@test.cd", "pwd", managerRole.Name, true)
	// claims-only super role; the store's super-admin seat stays free
	super := createUser(t, "Sup Er", "super@test.cd", "pwd", "", true)
	super.RoleName = role.RoleSuperAdmin

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, feedback: "not authenticated"},
		{name: "garbage token rejected", token: "not-a-jwt", wantCode: http.StatusUnauthorized, feedback: "invalid or expired jwt"},
		{name: "no role denied", token: getToken(t, plain), wantCode: http.StatusForbidden, feedback: "insufficient privilege"},
		{name: "role without privilege denied", token: getToken(t, teacher), wantCode: http.StatusForbidden, feedback: "insufficient privilege"},
		{name: "privileged role passes", token: getToken(t, manager), wantCode: http.StatusOK, wantOK: true},
		{name: "super role bypasses the check", token: getToken(t, super), wantCode: http.StatusOK, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodGet, "/v1/users", tt.token, nil)
			env := checkEnvelope(t, tt, rec)

			if env.Success {
				var users []user.User
				if err := json.Unmarshal(env.Data, &users); err != nil {
					t.Fatalf("decoding users: %v", err)
				}
				if len(users) == 0 {
					t.Error("expected users in the listing")
				}
			}
		})
	}
}

func Test_userAPI_register(t *testing.T) {
	manager := createUser(t, "Reg Ister", "registrar@test.cd", "pwd", managerRole.Name, true)
	token := getToken(t, manager)

	t.Run("unknown role is a field error", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest}
		rec := doRequest(t, http.MethodPost, "/v1/users/register", token,
			map[string]string{"name": "New Bie", "email": "newbie@test.cd", "role_name": "NOT_A_ROLE"})
		env := checkEnvelope(t, tt, rec)

		var fields map[string]string
		if err := json.Unmarshal(env.Data, &fields); err != nil {
			t.Fatalf("decoding field errors: %v", err)
		}
		if _, ok := fields["role_name"]; !ok {
			t.Errorf("expected a role_name field error, got %v", fields)
		}
	})

	t.Run("valid registration", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusCreated, wantOK: true, feedback: "An activation email has been sent."}
		rec := doRequest(t, http.MethodPost, "/v1/users/register", token,
			map[string]string{"name": "New Bie", "email": "newbie@test.cd", "role_name": "teacher"})
		env := checkEnvelope(t, tt, rec)

		var usr user.User
		if err := json.Unmarshal(env.Data, &usr); err != nil {
			t.Fatalf("decoding user: %v", err)
		}
		if usr.RoleName != role.RoleTeacher {
			t.Errorf("role_name = %q; want %q", usr.RoleName, role.RoleTeacher)
		}
		if usr.Active() {
			t.Error("new accounts start inactive")
		}
	})

	t.Run("duplicate email is a field error", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest}
		rec := doRequest(t, http.MethodPost, "/v1/users/register", token,
			map[string]string{"name": "New Bie", "email": "newbie@test.cd"})
		env := checkEnvelope(t, tt, rec)

		var fields map[string]string
		if err := json.Unmarshal(env.Data, &fields); err != nil {
			t.Fatalf("decoding field errors: %v", err)
		}
		if _, ok := fields["email"]; !ok {
			t.Errorf("expected an email field error, got %v", fields)
		}
	})
}

func Test_userAPI_detailAccess(t *testing.T) {
	owner := createUser(t, "Own Er", "owner@test.cd", "pwd", "", true)
	other := createUser(t, "Oth Er", "other@test.cd", "pwd", "", true)
	manager := createUser(t, "Det Ail", "detail-manager@test.cd", "pwd", managerRole.Name, true)

	tests := []httpTest{
		{name: "own profile", path: "/v1/users/" + owner.ID, token: getToken(t, owner), wantCode: http.StatusOK, wantOK: true},
		{name: "someone else's profile is invisible", path: "/v1/users/" + other.ID, token: getToken(t, owner), wantCode: http.StatusNotFound, feedback: "not found"},
		{name: "manager sees anyone", path: "/v1/users/" + other.ID, token: getToken(t, manager), wantCode: http.StatusOK, wantOK: true},
		{name: "manager gets 404 for unknown id", path: "/v1/users/nope", token: getToken(t, manager), wantCode: http.StatusNotFound, feedback: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodGet, tt.path, tt.token, nil)
			checkEnvelope(t, tt, rec)
		})
	}
}

func Test_userAPI_tokenRefresh(t *testing.T) {
	usr := createUser(t, "Ref Resh", "refresh@test.cd", "pwd", role.RoleTeacher, true)

	tt := httpTest{wantCode: http.StatusOK, wantOK: true}
	rec := doRequest(t, http.MethodPost, "/v1/users/token-refresh", getToken(t, usr), nil)
	env := checkEnvelope(t, tt, rec)

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decoding refresh data: %v", err)
	}
	if data.Token == "" {
		t.Error("expected a fresh token")
	}
}
