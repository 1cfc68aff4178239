// Package gemchat is the composition root of the chat client core. It wires
// configuration, session storage, the MCP server registry, and the inference
// engine into an App that a UI shell embeds. The protocol packages underneath
// (gemini, engine, mcp) never reach back into this layer; the UI observes a
// turn only through the progress callback it passes to Send.
package gemchat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gemchat/config"
	"gemchat/engine"
	"gemchat/gemini"
	"gemchat/mcp"
	"gemchat/model"
	"gemchat/storage"
)

// App owns the application state: exactly one session is current at a time,
// and its message list is mutated only by appending or by replacing the
// trailing placeholder model message while text streams in.
type App struct {
	Config  *config.Config
	Store   *storage.SessionStorage
	Servers *mcp.Manager

	serverStore *storage.ServerStore
	search      *storage.SearchIndex
	engine      *engine.Engine

	mu      sync.Mutex
	current *storage.Session
}

// New loads configuration, opens storage, restores persisted MCP server
// records as disconnected placeholders, and resumes the last active session
// (or starts a fresh one).
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	config.InitDebugLog(cfg.DataDir())

	sessions, err := storage.NewSessionStorage(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session storage: %w", err)
	}

	serverStore, err := storage.NewServerStore(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server store: %w", err)
	}

	manager := mcp.NewManager(nil)
	if records, err := serverStore.Load(); err == nil {
		manager.Restore(records)
	} else if config.Debug {
		config.DebugLog.Printf("[app] could not load server records: %v", err)
	}

	client, err := gemini.NewClient(cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}

	app := &App{
		Config:      cfg,
		Store:       sessions,
		Servers:     manager,
		serverStore: serverStore,
		search:      storage.NewSearchIndex(sessions),
		engine:      engine.New(client, manager),
	}

	// Resume the last active session when possible.
	if id, err := sessions.LoadCurrentSessionID(); err == nil {
		if sess, err := sessions.Load(id); err == nil {
			app.current = sess
		}
	}
	if app.current == nil {
		app.current = &storage.Session{ID: uuid.New().String()}
	}

	return app, nil
}

// RefreshServers optimistically re-runs the connect attempt for every
// restored server. Failures leave the server in error state; nothing is
// retried beyond an explicit refresh.
func (a *App) RefreshServers(ctx context.Context) {
	for _, server := range a.Servers.Servers() {
		_ = a.Servers.Connect(ctx, server.ID)
	}
	a.persistServers()
}

// AddServer registers a new MCP server and runs the connect attempt. The
// returned connection reflects the outcome: connected with its tool catalog
// populated, or error.
func (a *App) AddServer(ctx context.Context, serverURL string) (*mcp.ServerConnection, error) {
	server := a.Servers.AddServer(serverURL)
	err := a.Servers.Connect(ctx, server.ID)
	a.persistServers()
	return server, err
}

// RefreshServer re-runs the connect transition for one server.
func (a *App) RefreshServer(ctx context.Context, id string) error {
	err := a.Servers.Refresh(ctx, id)
	a.persistServers()
	return err
}

// RemoveServer deletes a server from the registry.
func (a *App) RemoveServer(id string) {
	a.Servers.RemoveServer(id)
	a.persistServers()
}

// CurrentSession returns the session new messages go to.
func (a *App) CurrentSession() *storage.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// NewSession makes a fresh empty session current.
func (a *App) NewSession() *storage.Session {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = &storage.Session{ID: uuid.New().String()}
	_ = a.Store.SaveCurrentSessionID(a.current.ID)
	return a.current
}

// SwitchSession loads a stored session and makes it current.
func (a *App) SwitchSession(id string) (*storage.Session, error) {
	sess, err := a.Store.Load(id)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.current = sess
	a.mu.Unlock()

	_ = a.Store.SaveCurrentSessionID(id)
	return sess, nil
}

// ListSessions returns metadata for all stored sessions, newest first.
func (a *App) ListSessions() ([]storage.SessionMetadata, error) {
	return a.Store.List()
}

// DeleteSession removes a stored session. Deleting the current session
// replaces it with a fresh one.
func (a *App) DeleteSession(id string) error {
	if err := a.Store.Delete(id); err != nil {
		return err
	}

	a.mu.Lock()
	if a.current != nil && a.current.ID == id {
		a.current = &storage.Session{ID: uuid.New().String()}
		_ = a.Store.SaveCurrentSessionID(a.current.ID)
	}
	a.mu.Unlock()

	return nil
}

// AddContextDoc adds a document to the current session's context set. The
// document is resent with every subsequent turn.
func (a *App) AddContextDoc(doc model.Attachment) {
	a.mu.Lock()
	a.current.ContextDocs = append(a.current.ContextDocs, doc)
	a.mu.Unlock()
	a.persistCurrent()
}

// SearchHistory scans all stored sessions for messages containing the query.
func (a *App) SearchHistory(query string) ([]storage.SessionMessageMatch, error) {
	return a.search.SearchAllSessions(query)
}

// Send runs one full conversation turn: the user message is appended, a
// placeholder model message follows it immediately (so a UI can render the
// turn optimistically), and the placeholder fills in as text streams back.
// onText fires on every incremental change with the full text so far.
//
// On an inference failure the placeholder becomes an error message, the
// session is saved, and the failure propagates.
func (a *App) Send(ctx context.Context, text string, attachments []model.Attachment, onText func(string)) (*model.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess := a.current
	sess.EnsureTitle(text)

	userMsg := model.Message{
		ID:          uuid.New().String(),
		Role:        model.RoleUser,
		Text:        text,
		Attachments: attachments,
		Timestamp:   time.Now(),
	}
	sess.AppendMessage(userMsg)

	placeholder := model.Message{
		ID:        uuid.New().String(),
		Role:      model.RoleModel,
		Timestamp: time.Now(),
	}
	sess.AppendMessage(placeholder)
	a.persistCurrentLocked()

	progress := func(streamed string) {
		updated := placeholder
		updated.Text = streamed
		sess.ReplaceLastMessage(updated)
		if onText != nil {
			onText(streamed)
		}
	}

	result, err := a.engine.Run(ctx, sess.Messages, sess.ContextDocs, progress)
	if err != nil {
		failed := placeholder
		failed.Text = fmt.Sprintf("Error: %v", err)
		failed.IsError = true
		sess.ReplaceLastMessage(failed)
		a.persistCurrentLocked()
		return nil, err
	}

	final := model.Message{
		ID:          placeholder.ID,
		Role:        model.RoleModel,
		Text:        result.Text,
		Timestamp:   time.Now(),
		ToolCalls:   result.ToolCalls,
		ToolResults: result.ToolResults,
	}
	sess.ReplaceLastMessage(final)
	a.persistCurrentLocked()

	return &final, nil
}

// persistCurrent saves the current session, best effort.
func (a *App) persistCurrent() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.persistCurrentLocked()
}

func (a *App) persistCurrentLocked() {
	if err := a.Store.Save(a.current); err != nil && config.Debug {
		config.DebugLog.Printf("[app] failed to save session: %v", err)
	}
	_ = a.Store.SaveCurrentSessionID(a.current.ID)
}

// persistServers saves the server registry snapshot, best effort.
func (a *App) persistServers() {
	if err := a.serverStore.Save(a.Servers.Snapshot()); err != nil && config.Debug {
		config.DebugLog.Printf("[app] failed to save server records: %v", err)
	}
}
