package gemchat

import (
	"testing"

	"gemchat/model"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMCHAT_DATA_DIR", t.TempDir())
	t.Setenv("GEMCHAT_API_KEY", "test-key")
	t.Setenv("GEMCHAT_MODEL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMCHAT_DEBUG", "")

	app, err := New()
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app
}

func TestNewStartsFreshSession(t *testing.T) {
	app := newTestApp(t)

	sess := app.CurrentSession()
	if sess == nil || sess.ID == "" {
		t.Fatal("expected a fresh current session")
	}
	if len(sess.Messages) != 0 {
		t.Errorf("expected empty session, got %d messages", len(sess.Messages))
	}
}

func TestSessionLifecycle(t *testing.T) {
	app := newTestApp(t)

	first := app.CurrentSession()
	first.EnsureTitle("first conversation")
	first.AppendMessage(model.Message{ID: "m1", Role: model.RoleUser, Text: "hello"})
	if err := app.Store.Save(first); err != nil {
		t.Fatal(err)
	}

	second := app.NewSession()
	if second.ID == first.ID {
		t.Fatal("new session must get its own ID")
	}
	if app.CurrentSession().ID != second.ID {
		t.Error("new session should become current")
	}

	restored, err := app.SwitchSession(first.ID)
	if err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if restored.Title != "first conversation" || len(restored.Messages) != 1 {
		t.Errorf("unexpected restored session: %+v", restored)
	}
	if app.CurrentSession().ID != first.ID {
		t.Error("switched session should become current")
	}

	list, err := app.ListSessions()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 stored session, got %d", len(list))
	}

	if err := app.DeleteSession(first.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if app.CurrentSession().ID == first.ID {
		t.Error("deleting the current session must replace it with a fresh one")
	}
}

func TestAddContextDoc(t *testing.T) {
	app := newTestApp(t)

	app.AddContextDoc(model.Attachment{Name: "notes.txt", MimeType: "text/plain", Base64Data: "aGVsbG8="})

	sess := app.CurrentSession()
	if len(sess.ContextDocs) != 1 || sess.ContextDocs[0].Name != "notes.txt" {
		t.Errorf("context doc not attached: %+v", sess.ContextDocs)
	}

	// Context docs persist with the session.
	loaded, err := app.Store.Load(sess.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.ContextDocs) != 1 {
		t.Errorf("context doc not persisted: %+v", loaded.ContextDocs)
	}
}

func TestServerRegistryPersistence(t *testing.T) {
	app := newTestApp(t)

	// The connect attempt fails (nothing listens), but the record persists.
	if _, err := app.AddServer(t.Context(), "http://127.0.0.1:1/rpc"); err == nil {
		t.Fatal("expected connect failure")
	}

	records, err := app.serverStore.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 1 || records[0].URL != "http://127.0.0.1:1/rpc" {
		t.Errorf("server record not persisted: %+v", records)
	}

	app.RemoveServer(records[0].ID)
	records, err = app.serverStore.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty registry after remove, got %+v", records)
	}
}
