package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"

	"leadbot/internal/entities"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// zapWALogger routes whatsmeow logs into zap.
type zapWALogger struct {
	s *zap.SugaredLogger
}

func newWALogger(module string) waLog.Logger {
	return zapWALogger{s: zap.L().Sugar().Named(module)}
}

func (l zapWALogger) Warnf(msg string, args ...interface{})  { l.s.Warnf(msg, args...) }
func (l zapWALogger) Errorf(msg string, args ...interface{}) { l.s.Errorf(msg, args...) }
func (l zapWALogger) Infof(msg string, args ...interface{})  { l.s.Infof(msg, args...) }
func (l zapWALogger) Debugf(msg string, args ...interface{}) { l.s.Debugf(msg, args...) }
func (l zapWALogger) Sub(module string) waLog.Logger         { return zapWALogger{s: l.s.Named(module)} }

// WhatsAppClient is one linked WhatsApp device owned by a tenant.
type WhatsAppClient struct {
	Client   *whatsmeow.Client
	TenantID string

	qrCode string
	qrLock sync.RWMutex
	log    *zap.Logger
}

func NewWhatsAppClient(ctx context.Context, dbPath, tenantID string) (*WhatsAppClient, error) {
	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", newWALogger("wa-db"))
	if err != nil {
		return nil, eris.Wrapf(err, "whatsapp: open device store %s", dbPath)
	}

	// Get the first device (or create one)
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "whatsapp: get device")
	}

	client := whatsmeow.NewClient(deviceStore, newWALogger("wa-client"))
	return &WhatsAppClient{
		Client:   client,
		TenantID: tenantID,
		log:      zap.L().With(zap.String("component", "whatsapp"), zap.String("tenant_id", tenantID)),
	}, nil
}

// Connect opens the websocket. A device without a session starts pairing
// and publishes QR codes through QR.
func (w *WhatsAppClient) Connect(ctx context.Context) error {
	if w.Client.Store.ID != nil {
		if err := w.Client.Connect(); err != nil {
			return eris.Wrap(err, "whatsapp: connect")
		}
		w.log.Info("whatsapp connected", zap.String("phone", w.PhoneNumber()))
		return nil
	}

	qrChan, err := w.Client.GetQRChannel(ctx)
	if err != nil {
		return eris.Wrap(err, "whatsapp: qr channel")
	}
	if err := w.Client.Connect(); err != nil {
		return eris.Wrap(err, "whatsapp: connect")
	}
	go w.watchQR(qrChan)
	return nil
}

func (w *WhatsAppClient) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == whatsmeow.QRChannelEventCode {
			w.qrLock.Lock()
			w.qrCode = evt.Code
			w.qrLock.Unlock()
			w.log.Info("whatsapp pairing code refreshed")
			continue
		}
		w.log.Info("whatsapp login event", zap.String("event", evt.Event))
		if evt.Event == whatsmeow.QRChannelSuccess.Event {
			w.qrLock.Lock()
			w.qrCode = ""
			w.qrLock.Unlock()
		}
	}
}

// QR returns the latest pairing code, empty when none is pending.
func (w *WhatsAppClient) QR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

// IsConnected returns true if client is connected and logged in
func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

func (w *WhatsAppClient) PhoneNumber() string {
	if w.Client.Store.ID == nil {
		return ""
	}
	return w.Client.Store.ID.User
}

func (w *WhatsAppClient) Name() string {
	if w.Client.Store.ID == nil {
		return ""
	}
	return w.Client.Store.PushName
}

// Logout unlinks the device and reconnects to offer a fresh QR code.
func (w *WhatsAppClient) Logout(ctx context.Context) error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.qrLock.Unlock()

	if err := w.Client.Logout(ctx); err != nil {
		return eris.Wrap(err, "whatsapp: logout")
	}
	w.Client.Disconnect()
	return w.Connect(ctx)
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

func (w *WhatsAppClient) AddHandler(handler func(interface{})) {
	w.Client.AddEventHandler(handler)
}

// ParseRecipient accepts a full JID or a phone number with optional
// "whatsapp:" and "+" prefixes.
func ParseRecipient(to string) (types.JID, error) {
	if strings.Contains(to, "@") {
		jid, err := types.ParseJID(to)
		if err != nil {
			return types.JID{}, eris.Wrapf(err, "whatsapp: invalid jid %q", to)
		}
		return jid, nil
	}
	user := GraphRecipient(to)
	if user == "" {
		return types.JID{}, eris.New("whatsapp: empty recipient")
	}
	return types.NewJID(user, types.DefaultUserServer), nil
}

func (w *WhatsAppClient) SendMessage(ctx context.Context, to, content string) error {
	jid, err := ParseRecipient(to)
	if err != nil {
		return err
	}
	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: &content,
	})
	if err != nil {
		return eris.Wrapf(err, "whatsapp: send to %s", jid)
	}
	return nil
}

// MessageFromEvent converts an incoming text message into its canonical
// form. Group chats, own messages and non-text messages are skipped.
func MessageFromEvent(evt *events.Message, ownNumber string) (entities.CanonicalMessage, bool) {
	if evt == nil || evt.Message == nil || evt.Info.IsGroup || evt.Info.IsFromMe {
		return entities.CanonicalMessage{}, false
	}
	text := evt.Message.GetConversation()
	if text == "" {
		text = evt.Message.GetExtendedTextMessage().GetText()
	}
	if strings.TrimSpace(text) == "" {
		return entities.CanonicalMessage{}, false
	}

	msg := entities.CanonicalMessage{
		Channel: entities.ChannelWhatsApp,
		From:    fmt.Sprintf("whatsapp:+%s", evt.Info.Sender.User),
		Text:    text,
		Raw:     evt,
	}
	if ownNumber != "" {
		msg.To = "whatsapp:+" + ownNumber
	}
	return msg, true
}
