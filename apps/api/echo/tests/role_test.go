package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/shuleos/shule/core/role"
)

func Test_roleAPI_guard(t *testing.T) {
	teacher := createUser(t, "Tea Cher", "role-teacher@test.cd", "pwd", role.RoleTeacher, true)
	// super role lives in the claims only so the shared store keeps a free
	// super-admin seat for the assignment tests
	super := createUser(t, "Sup Reme", "role-super@test.cd", "pwd", "", true)
	super.RoleName = role.RoleSuperAdmin

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, feedback: "not authenticated"},
		{name: "privilege required", token: getToken(t, teacher), wantCode: http.StatusForbidden, feedback: "insufficient privilege"},
		{name: "super role bypasses the check", token: getToken(t, super), wantCode: http.StatusOK, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodGet, "/v1/roles", tt.token, nil)
			env := checkEnvelope(t, tt, rec)

			if env.Success {
				var roles []role.Role
				if err := json.Unmarshal(env.Data, &roles); err != nil {
					t.Fatalf("decoding roles: %v", err)
				}
				if len(roles) == 0 {
					t.Error("expected seeded roles")
				}
			}
		})
	}
}

func Test_roleAPI_privileges(t *testing.T) {
	manager := createUser(t, "Pri Ver", "priv-manager@test.cd", "pwd", managerRole.Name, true)

	tt := httpTest{wantCode: http.StatusOK, wantOK: true}
	rec := doRequest(t, http.MethodGet, "/v1/roles/privileges", getToken(t, manager), nil)
	env := checkEnvelope(t, tt, rec)

	var privs []role.Privilege
	if err := json.Unmarshal(env.Data, &privs); err != nil {
		t.Fatalf("decoding privileges: %v", err)
	}
	if len(privs) != len(role.ListAllPrivileges()) {
		t.Errorf("got %d privileges; want the whole registry (%d)", len(privs), len(role.ListAllPrivileges()))
	}
}

func Test_roleAPI_lifecycle(t *testing.T) {
	manager := createUser(t, "Life Cycle", "role-manager@test.cd", "pwd", managerRole.Name, true)
	token := getToken(t, manager)

	var created role.Role

	t.Run("create normalizes the name", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusCreated, wantOK: true, feedback: "Role created."}
		rec := doRequest(t, http.MethodPost, "/v1/roles", token,
			map[string]interface{}{"name": "exam_officer", "description": "Runs the exams"})
		env := checkEnvelope(t, tt, rec)

		if err := json.Unmarshal(env.Data, &created); err != nil {
			t.Fatalf("decoding role: %v", err)
		}
		if created.Name != "EXAM_OFFICER" {
			t.Errorf("name = %q; want EXAM_OFFICER", created.Name)
		}
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest}
		rec := doRequest(t, http.MethodPost, "/v1/roles", token,
			map[string]interface{}{"name": "Exam_Officer"})
		checkEnvelope(t, tt, rec)
	})

	t.Run("retrieve", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantOK: true}
		rec := doRequest(t, http.MethodGet, "/v1/roles/"+created.ID, token, nil)
		checkEnvelope(t, tt, rec)
	})

	t.Run("unknown role is 404", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, feedback: role.ErrRoleNotFound.Error()}
		rec := doRequest(t, http.MethodGet, "/v1/roles/nope", token, nil)
		checkEnvelope(t, tt, rec)
	})

	t.Run("replace the privilege set", func(t *testing.T) {
		privs, err := roleSvc.QueryPrivileges(context.Background())
		if err != nil {
			t.Fatalf("QueryPrivileges(): %v", err)
		}
		tt := httpTest{wantCode: http.StatusOK, wantOK: true}
		rec := doRequest(t, http.MethodPut, "/v1/roles/"+created.ID, token,
			map[string]interface{}{"privilege_ids": []string{privs[0].ID}})
		env := checkEnvelope(t, tt, rec)

		var updated role.Role
		if err := json.Unmarshal(env.Data, &updated); err != nil {
			t.Fatalf("decoding role: %v", err)
		}
		if len(updated.Privileges) != 1 || updated.Privileges[0].Name != privs[0].Name {
			t.Errorf("privileges = %v; want just %s", updated.PrivilegeNames(), privs[0].Name)
		}
	})

	t.Run("renaming the permanent role is forbidden", func(t *testing.T) {
		superRole, err := roleSvc.GetRole(context.Background(), role.GetFilter{Name: role.RoleSuperAdmin})
		if err != nil {
			t.Fatalf("GetRole(): %v", err)
		}
		tt := httpTest{wantCode: http.StatusForbidden, feedback: role.ErrPermanentRole.Error()}
		rec := doRequest(t, http.MethodPut, "/v1/roles/"+superRole.ID, token,
			map[string]interface{}{"name": "owner"})
		checkEnvelope(t, tt, rec)
	})

	t.Run("deleting the permanent role is forbidden", func(t *testing.T) {
		superRole, err := roleSvc.GetRole(context.Background(), role.GetFilter{Name: role.RoleSuperAdmin})
		if err != nil {
			t.Fatalf("GetRole(): %v", err)
		}
		tt := httpTest{wantCode: http.StatusForbidden, feedback: role.ErrPermanentRole.Error()}
		rec := doRequest(t, http.MethodDelete, "/v1/roles/"+superRole.ID, token, nil)
		checkEnvelope(t, tt, rec)
	})

	t.Run("deleting a role in use conflicts", func(t *testing.T) {
		holder := createUser(t, "Hol Der", "holder@test.cd", "pwd", "", true)
		if _, err := roleSvc.AssignToUser(context.Background(), holder.ID, created.Name); err != nil {
			t.Fatalf("AssignToUser(): %v", err)
		}
		tt := httpTest{wantCode: http.StatusConflict, feedback: role.ErrRoleInUse.Error()}
		rec := doRequest(t, http.MethodDelete, "/v1/roles/"+created.ID, token, nil)
		checkEnvelope(t, tt, rec)
	})
}

func Test_roleAPI_assign(t *testing.T) {
	manager := createUser(t, "Ass Igner", "assigner@test.cd", "pwd", managerRole.Name, true)
	token := getToken(t, manager)

	awa := createUser(t, "Awa Lu", "assign-awa@test.cd", "pwd", "", true)
	ben := createUser(t, "Ben Om", "assign-ben@test.cd", "pwd", "", true)

	assignBody := func(userID, roleName string) map[string]string {
		return map[string]string{"user_id": userID, "role_name": roleName}
	}

	t.Run("missing fields", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, feedback: "validation failed"}
		rec := doRequest(t, http.MethodPost, "/v1/roles/assign", token, map[string]string{})
		checkEnvelope(t, tt, rec)
	})

	t.Run("unknown role", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, feedback: role.ErrRoleNotFound.Error()}
		rec := doRequest(t, http.MethodPost, "/v1/roles/assign", token, assignBody(awa.ID, "NOT_A_ROLE"))
		checkEnvelope(t, tt, rec)
	})

	t.Run("unknown user", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound}
		rec := doRequest(t, http.MethodPost, "/v1/roles/assign", token, assignBody("nope", role.RoleTeacher))
		checkEnvelope(t, tt, rec)
	})

	t.Run("assignment returns the safe projection", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantOK: true, feedback: "Role assigned."}
		rec := doRequest(t, http.MethodPost, "/v1/roles/assign", token, assignBody(awa.ID, "teacher"))
		env := checkEnvelope(t, tt, rec)

		var assigned role.AssignedUser
		if err := json.Unmarshal(env.Data, &assigned); err != nil {
			t.Fatalf("decoding assignment: %v", err)
		}
		if assigned.RoleName != role.RoleTeacher {
			t.Errorf("role_name = %q; want %q", assigned.RoleName, role.RoleTeacher)
		}
		if strings.Contains(strings.ToLower(string(env.Data)), "password") {
			t.Errorf("assignment payload leaks password material: %s", env.Data)
		}
	})

	t.Run("super role conflict", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantOK: true}
		rec := doRequest(t, http.MethodPost, "/v1/roles/assign", token, assignBody(awa.ID, role.RoleSuperAdmin))
		checkEnvelope(t, tt, rec)

		tt = httpTest{wantCode: http.StatusConflict, feedback: role.ErrSuperRoleHeld.Error()}
		rec = doRequest(t, http.MethodPost, "/v1/roles/assign", token, assignBody(ben.ID, role.RoleSuperAdmin))
		checkEnvelope(t, tt, rec)
	})

	t.Run("re-assigning super to its holder succeeds", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantOK: true, feedback: "Role assigned."}
		rec := doRequest(t, http.MethodPost, "/v1/roles/assign", token, assignBody(awa.ID, role.RoleSuperAdmin))
		checkEnvelope(t, tt, rec)
	})
}
