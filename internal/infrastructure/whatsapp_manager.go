package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rotisserie/eris"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

var deviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// WhatsAppStatus is the link state of one tenant's device.
type WhatsAppStatus struct {
	TenantID  string `json:"tenant_id"`
	Connected bool   `json:"connected"`
	LoggedIn  bool   `json:"logged_in"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	QRPending bool   `json:"qr_pending"`
}

// WhatsAppManager owns one linked device per tenant and feeds their
// incoming messages to the pipeline.
type WhatsAppManager struct {
	clients   map[string]*WhatsAppClient
	mu        sync.RWMutex
	baseDir   string
	responder interfaces.Responder
	sessions  *SessionManager

	// ctx is the serve lifetime; pipeline runs inherit it.
	ctx context.Context
	log *zap.Logger
}

func NewWhatsAppManager(baseDir string, responder interfaces.Responder) *WhatsAppManager {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		zap.L().Warn("could not create devices directory", zap.String("dir", baseDir), zap.Error(err))
	}
	return &WhatsAppManager{
		clients:   make(map[string]*WhatsAppClient),
		baseDir:   baseDir,
		responder: responder,
		sessions:  NewSessionManager(),
		ctx:       context.Background(),
		log:       zap.L().With(zap.String("component", "whatsapp-manager")),
	}
}

// DevicePath is where tenantID's device session is stored.
func (m *WhatsAppManager) DevicePath(tenantID string) (string, error) {
	if !deviceNamePattern.MatchString(tenantID) {
		return "", eris.Errorf("whatsapp: invalid tenant id %q", tenantID)
	}
	return filepath.Join(m.baseDir, tenantID+".db"), nil
}

// Client returns the tenant's client, nil when none was created.
func (m *WhatsAppManager) Client(tenantID string) *WhatsAppClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[tenantID]
}

func (m *WhatsAppManager) getOrCreate(tenantID string) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[tenantID]; ok {
		return client, nil
	}
	path, err := m.DevicePath(tenantID)
	if err != nil {
		return nil, err
	}
	client, err := NewWhatsAppClient(m.ctx, path, tenantID)
	if err != nil {
		return nil, err
	}
	client.AddHandler(m.eventHandler(client))
	m.clients[tenantID] = client
	return client, nil
}

// Connect links or reconnects the tenant's device.
func (m *WhatsAppManager) Connect(ctx context.Context, tenantID string) (*WhatsAppClient, error) {
	client, err := m.getOrCreate(tenantID)
	if err != nil {
		return nil, err
	}
	if client.Client.IsConnected() {
		return client, nil
	}
	if err := client.Connect(ctx); err != nil {
		return nil, eris.Wrapf(err, "whatsapp: connect tenant %s", tenantID)
	}
	return client, nil
}

// Link connects the tenant's device and reports its state.
func (m *WhatsAppManager) Link(ctx context.Context, tenantID string) (WhatsAppStatus, error) {
	if _, err := m.Connect(ctx, tenantID); err != nil {
		return WhatsAppStatus{TenantID: tenantID}, err
	}
	return m.Status(tenantID), nil
}

// QR returns the tenant's pending pairing code, empty when none.
func (m *WhatsAppManager) QR(tenantID string) string {
	client := m.Client(tenantID)
	if client == nil {
		return ""
	}
	return client.QR()
}

// Status reports the tenant's link state; unknown tenants are disconnected.
func (m *WhatsAppManager) Status(tenantID string) WhatsAppStatus {
	st := WhatsAppStatus{TenantID: tenantID}
	client := m.Client(tenantID)
	if client == nil {
		return st
	}
	st.Connected = client.IsConnected()
	st.LoggedIn = client.IsLoggedIn()
	st.Phone = client.PhoneNumber()
	st.Name = client.Name()
	st.QRPending = client.QR() != ""
	return st
}

// Run connects every configured tenant and disconnects all devices when
// ctx is done. Tenants that fail to connect are logged and skipped.
func (m *WhatsAppManager) Run(ctx context.Context, tenants []string) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	for _, id := range tenants {
		if _, err := m.Connect(ctx, id); err != nil {
			m.log.Error("whatsapp device not started", zap.String("tenant_id", id), zap.Error(err))
		}
	}
	<-ctx.Done()
	m.DisconnectAll()
	return nil
}

func (m *WhatsAppManager) eventHandler(client *WhatsAppClient) func(interface{}) {
	return func(evt interface{}) {
		switch e := evt.(type) {
		case *events.Message:
			msg, ok := MessageFromEvent(e, client.PhoneNumber())
			if !ok {
				return
			}
			go m.dispatch(m.lifetime(), client.TenantID, client, msg, e.Info.Chat.String())
		case *events.LoggedOut:
			m.log.Warn("whatsapp device logged out", zap.String("tenant_id", client.TenantID))
		}
	}
}

func (m *WhatsAppManager) lifetime() context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctx
}

func (m *WhatsAppManager) dispatch(ctx context.Context, tenantID string, out interfaces.Messenger, msg entities.CanonicalMessage, replyTo string) {
	release := m.sessions.Acquire(msg.From)
	defer release()

	if _, err := m.responder.Respond(ctx, msg, tenantID, out, replyTo); err != nil {
		m.log.Error("whatsapp reply failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// DisconnectAll disconnects all clients (for graceful shutdown)
func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.Disconnect()
	}
	m.clients = make(map[string]*WhatsAppClient)
}
