package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"checkin-backend/controllers"
	"checkin-backend/models"
	"checkin-backend/realtime"
	"checkin-backend/services"
	"checkin-backend/utils"
)

const (
	superEmail    = "admin@vibee.com"
	superPassword = "SuperSecret1"
	tempPassword  = "Vibee1234!"
)

type testApp struct {
	router *gin.Engine
	team   *services.TeamService
	guests *services.GuestService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()
	ctx := context.Background()
	hub := realtime.NewHub()

	settings, err := services.NewSettingsService(hub, filepath.Join(t.TempDir(), "settings.yaml"), log)
	if err != nil {
		t.Fatal(err)
	}
	guests := services.NewGuestService(hub, log)
	guests.Start()
	t.Cleanup(guests.Stop)

	activity := services.NewActivityService(hub, log)
	mutations := services.NewMutationApplier(guests, hub, activity, settings.WaiverURL, log)
	verifier := services.NewWaiverVerifier(services.NewWaiverClient("", settings.APIKey), guests, mutations, settings.Get, log)

	auth := services.NewAuthService(hub, services.AuthOptions{Secret: "route-secret", DefaultPassword: tempPassword}, log)
	if err := auth.SeedSuperAdmin(ctx, superEmail, superPassword); err != nil {
		t.Fatal(err)
	}
	// No SMTP host: invites are logged, not sent.
	team := services.NewTeamService(hub, auth, services.TeamOptions{SuperAdminEmail: superEmail, SMTP: utils.SMTPConfig{}}, log)

	router := SetupRouter(Controllers{
		Auth:     controllers.NewAuthController(auth, team),
		Guests:   controllers.NewGuestController(guests, mutations, verifier),
		Reports:  controllers.NewReportController(guests),
		Admin:    controllers.NewAdminController(guests, services.NewImporter(log), verifier),
		Team:     controllers.NewTeamController(team),
		Settings: controllers.NewSettingsController(settings),
		Activity: controllers.NewActivityController(activity),
	}, auth, team, []string{"*"}, log)

	return &testApp{router: router, team: team, guests: guests}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, w.Code, w.Body)
	}
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Data.Token == "" {
		t.Fatalf("login response %s: %v", w.Body, err)
	}
	return resp.Data.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
	return out
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	if w := app.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)
	if w := app.do(t, http.MethodGet, "/api/guests", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/api/guests", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", w.Code)
	}
	w := app.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": superEmail, "password": "wrong-password"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", w.Code)
	}
}

func TestCheckInFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, superEmail, superPassword)

	upload := []models.GuestRecord{{OrderNumber: "#4521", BillingFirst: "Amy", BillingLast: "Lee", EventDate: "12/27/2025", TicketType: "VIP"}}
	if w := app.do(t, http.MethodPost, "/api/admin/upload", admin, upload); w.Code != http.StatusOK {
		t.Fatalf("upload = %d %s", w.Code, w.Body)
	}
	// A second upload without replace must not clobber live data.
	if w := app.do(t, http.MethodPost, "/api/admin/upload", admin, upload); w.Code != http.StatusConflict {
		t.Fatalf("second upload = %d", w.Code)
	}

	w := app.do(t, http.MethodPost, "/api/guests/4521/toggle/checked", admin, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("denied toggle = %d %s", w.Code, w.Body)
	}
	body := decode(t, w)
	if body["status"] != "denied" || body["reason"] != "WAIVER_REQUIRED" || body["field"] != "checked" || body["orderNumber"] != "4521" {
		t.Fatalf("denied body = %v", body)
	}

	w = app.do(t, http.MethodPost, "/api/guests/4521/toggle/jotformWaiver", admin, nil)
	if w.Code != http.StatusConflict || decode(t, w)["code"] != "WAIVER_LINK_REQUIRED" {
		t.Fatalf("waiver toggle = %d %s", w.Code, w.Body)
	}

	if w := app.do(t, http.MethodPut, "/api/guests/4521/waiver", admin, gin.H{"value": "Signed"}); w.Code != http.StatusOK {
		t.Fatalf("set waiver = %d %s", w.Code, w.Body)
	}
	if w := app.do(t, http.MethodPost, "/api/guests/4521/toggle/idChecked", admin, nil); w.Code != http.StatusOK {
		t.Fatalf("id check = %d %s", w.Code, w.Body)
	}
	if w := app.do(t, http.MethodPost, "/api/guests/4521/toggle/checked", admin, nil); w.Code != http.StatusOK {
		t.Fatalf("check in = %d %s", w.Code, w.Body)
	}

	g, err := app.guests.Get("4521")
	if err != nil || !g.Checked || g.Status != models.StatusChecked {
		t.Fatalf("guest = %+v, %v", g, err)
	}

	w = app.do(t, http.MethodGet, "/api/activity?limit=1", admin, nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("Checked in")) {
		t.Fatalf("activity = %d %s", w.Code, w.Body)
	}

	if w := app.do(t, http.MethodPost, "/api/guests/4521/toggle/bogus", admin, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bogus field = %d", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/api/guests/9999", admin, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing guest = %d", w.Code)
	}
	w = app.do(t, http.MethodGet, "/api/reports?mode=week&week=2025-W52", admin, nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"Week of Dec 21 - Dec 27"`)) {
		t.Fatalf("report = %d %s", w.Code, w.Body)
	}
	if w := app.do(t, http.MethodGet, "/api/reports?mode=month", admin, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad mode = %d", w.Code)
	}
}

func TestStaffCannotReachAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	m, err := app.team.Add(ctx, services.AddMemberInput{Email: "sam@example.com", Name: "Sam"})
	if err != nil {
		t.Fatal(err)
	}
	staff := app.login(t, "sam@example.com", tempPassword)

	if w := app.do(t, http.MethodGet, "/api/guests", staff, nil); w.Code != http.StatusOK {
		t.Fatalf("staff list guests = %d", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/api/team", staff, nil); w.Code != http.StatusForbidden {
		t.Fatalf("staff team = %d", w.Code)
	}
	if w := app.do(t, http.MethodPut, "/api/settings", staff, models.DefaultSettings()); w.Code != http.StatusForbidden {
		t.Fatalf("staff settings update = %d", w.Code)
	}

	// Promotion applies to the existing session.
	role := models.RoleAdmin
	if _, err := app.team.Update(ctx, m.ID, services.UpdateMemberInput{Role: &role}); err != nil {
		t.Fatal(err)
	}
	if w := app.do(t, http.MethodGet, "/api/team", staff, nil); w.Code != http.StatusOK {
		t.Fatalf("promoted team = %d", w.Code)
	}

	// Removal revokes it.
	if err := app.team.Remove(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if w := app.do(t, http.MethodGet, "/api/guests", staff, nil); w.Code != http.StatusForbidden {
		t.Fatalf("removed member = %d", w.Code)
	}
}
