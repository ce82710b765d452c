package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/sparshv/projportal/core/group"
	"github.com/sparshv/projportal/core/user"
	testutil "github.com/sparshv/projportal/tests"
)

func Test_groupApi(t *testing.T) {
	app := setup(t)

	ctx := context.Background()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.edu", "", []string{user.RoleAdmin}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof Kumar", "pkumar", "pkumar@test.edu", "", []string{user.RoleFaculty}, true)
	other := testutil.CreateUser(t, usrRepo, "Prof Singh", "psingh", "psingh@test.edu", "", []string{user.RoleFaculty}, true)
	hero := testutil.CreateStudent(t, usrRepo, "Hero", "hero01", "hero@test.edu", 41, 7, 2023)

	adminToken := getToken(t, admin)
	newSetting := group.NewSetting{
		Semester:   7,
		Year:       2026,
		MaxGroups:  2,
		MaxMembers: 3,
		OpenWindow: true,
		Deadline:   "2026-09-30",
	}

	// only admin may save a policy
	req, rec := newAuthRequest(http.MethodPost, "/v1/group-settings", getToken(t, hero), marchallObj(t, newSetting))
	app.ServeHTTP(rec, req)
	tt := httpTest{name: "Admin required", wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
	checkCodeAndData(t, tt, rec)

	// saving derives the batch and seeds a load row per faculty
	req, rec = newAuthRequest(http.MethodPost, "/v1/group-settings", adminToken, marchallObj(t, newSetting))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var setting group.Setting
	if err := json.Unmarshal(rec.Body.Bytes(), &setting); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if setting.Batch != 2023 {
		t.Errorf("failed! batch = %d; want 2023", setting.Batch)
	}
	for _, f := range []user.User{prof, other} {
		fl, err := loadRepo.GetLoad(ctx, f.ID, 2026, 7)
		if err != nil {
			t.Fatalf("GetLoad(%s) failed: %v", f.Username, err)
		}
		if fl.MaxGroupsAllowed != 2 || fl.MaxStudentsAllowed != 3 {
			t.Errorf("failed! %s maxima = (%d, %d); want (2, 3)", f.Username, fl.MaxGroupsAllowed, fl.MaxStudentsAllowed)
		}
		if fl.TotalGroups != 0 || fl.TotalStudents != 0 {
			t.Errorf("failed! %s load must start at zero", f.Username)
		}
	}

	// anyone authenticated may read the current policy
	req, rec = newAuthRequest(http.MethodGet, "/v1/group-settings/current?semester=7&year=2026", getToken(t, hero))
	app.ServeHTTP(rec, req)
	tt = httpTest{name: "current", wantCode: http.StatusOK, wantData: marchallObj(t, setting)}
	checkCodeAndData(t, tt, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/group-settings/current?semester=3&year=2026", getToken(t, hero))
	app.ServeHTTP(rec, req)
	tt = httpTest{name: "current (unset)", wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
	checkCodeAndData(t, tt, rec)

	// updating propagates the new maxima to every load row of the cohort
	updated := newSetting
	updated.MaxGroups = 4
	updated.MaxMembers = 2
	req, rec = newAuthRequest(http.MethodPut, "/v1/group-settings/"+setting.ID, adminToken, marchallObj(t, updated))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	fl, err := loadRepo.GetLoad(ctx, prof.ID, 2026, 7)
	if err != nil {
		t.Fatalf("GetLoad() failed: %v", err)
	}
	if fl.MaxGroupsAllowed != 4 || fl.MaxStudentsAllowed != 2 {
		t.Errorf("failed! maxima = (%d, %d); want (4, 2)", fl.MaxGroupsAllowed, fl.MaxStudentsAllowed)
	}

	// deleting the policy keeps the historical load rows
	req, rec = newAuthRequest(http.MethodDelete, "/v1/group-settings/"+setting.ID, adminToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; want %v", rec.Code, http.StatusNoContent)
	}
	if _, err := loadRepo.GetLoad(ctx, prof.ID, 2026, 7); err != nil {
		t.Errorf("GetLoad() after delete failed: %v", err)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/group-settings", adminToken)
	app.ServeHTTP(rec, req)
	tt = httpTest{name: "all (empty)", wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}
	checkCodeAndData(t, tt, rec)
}
