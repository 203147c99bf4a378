package services

import (
	"context"
	"path/filepath"
	"testing"

	"checkin-backend/config"
	"checkin-backend/models"
	"checkin-backend/realtime"
)

func TestSettingsUpdateMirrorsAndSaves(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub()
	path := filepath.Join(t.TempDir(), "settings.yaml")

	svc, err := NewSettingsService(hub, path, testLog)
	if err != nil {
		t.Fatal(err)
	}
	svc.Start()
	defer svc.Stop()

	if got := svc.Get(); got != models.DefaultSettings() {
		t.Fatalf("initial settings = %+v", got)
	}

	next := svc.Get()
	next.HeaderName = "Front Desk"
	next.JotformAPIKey = "  key-123  "
	saved, err := svc.Update(ctx, next)
	if err != nil {
		t.Fatal(err)
	}
	if saved.JotformAPIKey != "key-123" || svc.APIKey() != "key-123" {
		t.Fatalf("saved = %+v", saved)
	}
	if svc.Public().JotformAPIKey != "" {
		t.Fatal("public settings leak the api key")
	}

	onDisk, err := config.LoadSettingsFile(path)
	if err != nil || onDisk.HeaderName != "Front Desk" {
		t.Fatalf("file = %+v, %v", onDisk, err)
	}
	snap, _ := hub.ReadOnce(ctx, realtime.CollectionSettings)
	if _, ok := snap.Get(SettingsKey); !ok {
		t.Fatal("settings not mirrored to the store")
	}

	blank := svc.Get()
	blank.HeaderName = " "
	if _, err := svc.Update(ctx, blank); CodeOf(err) != CodeInvalidArgument {
		t.Fatalf("blank header: err = %v", err)
	}
}

func TestSettingsFollowRemoteChanges(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub()
	path := filepath.Join(t.TempDir(), "settings.yaml")

	svc, err := NewSettingsService(hub, path, testLog)
	if err != nil {
		t.Fatal(err)
	}
	svc.Start()
	defer svc.Stop()

	remote := models.DefaultSettings()
	remote.JotformURL = "https://forms.example.com/999"
	if err := hub.Put(ctx, realtime.CollectionSettings, SettingsKey, remote); err != nil {
		t.Fatal(err)
	}
	if svc.WaiverURL() != "https://forms.example.com/999" {
		t.Fatalf("waiver url = %q", svc.WaiverURL())
	}
	onDisk, _ := config.LoadSettingsFile(path)
	if onDisk.JotformURL != remote.JotformURL {
		t.Fatalf("remote change not saved locally: %+v", onDisk)
	}
}

func TestSettingsSyncFailureKeepsLocalSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	svc, err := NewSettingsService(brokenPutStore{realtime.NewHub()}, path, testLog)
	if err != nil {
		t.Fatal(err)
	}
	next := svc.Get()
	next.HeaderSubtitle = "Night shift"
	saved, err := svc.Update(context.Background(), next)
	if CodeOf(err) != CodeSyncFailure {
		t.Fatalf("err = %v", err)
	}
	if saved.HeaderSubtitle != "Night shift" || svc.Get().HeaderSubtitle != "Night shift" {
		t.Fatalf("local copy lost: %+v", svc.Get())
	}
}

type brokenPutStore struct {
	*realtime.Hub
}

func (brokenPutStore) Put(context.Context, string, string, any) error {
	return realtime.ErrNotObject
}
