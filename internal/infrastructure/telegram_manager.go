package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

// botSender is the part of *tgbotapi.BotAPI used to reply.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramMessenger delivers replies to "telegram:<chat_id>" addresses.
type TelegramMessenger struct {
	bot botSender
}

func (t TelegramMessenger) SendMessage(_ context.Context, to, text string) error {
	chatID, err := strconv.ParseInt(strings.TrimPrefix(to, "telegram:"), 10, 64)
	if err != nil {
		return eris.Wrapf(err, "telegram: invalid chat id %q", to)
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return eris.Wrapf(err, "telegram: send to %d", chatID)
	}
	return nil
}

// TelegramBotInstance is one tenant's running bot.
type TelegramBotInstance struct {
	Bot      *tgbotapi.BotAPI
	TenantID string

	stop      chan struct{}
	isRunning bool
	mu        sync.Mutex
}

func (i *TelegramBotInstance) running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.isRunning
}

// TelegramBotManager runs one long-polling bot per tenant.
type TelegramBotManager struct {
	bots      map[string]*TelegramBotInstance
	mu        sync.RWMutex
	responder interfaces.Responder
	tenants   interfaces.TenantConfigStore
	sessions  *SessionManager
	newBot    func(token string) (*tgbotapi.BotAPI, error)
	log       *zap.Logger
}

func NewTelegramBotManager(responder interfaces.Responder, tenants interfaces.TenantConfigStore) *TelegramBotManager {
	return &TelegramBotManager{
		bots:      make(map[string]*TelegramBotInstance),
		responder: responder,
		tenants:   tenants,
		sessions:  NewSessionManager(),
		newBot:    tgbotapi.NewBotAPI,
		log:       zap.L().With(zap.String("component", "telegram")),
	}
}

// Greeting is the /start answer for a tenant.
func Greeting(displayName string) string {
	return fmt.Sprintf("Hi! Welcome to %s. Ask me anything, and share your phone number or email if you'd like us to get in touch.", displayName)
}

// MessageFromUpdate converts a text update into its canonical form.
func MessageFromUpdate(update tgbotapi.Update, botUserName string) (entities.CanonicalMessage, bool) {
	m := update.Message
	if m == nil || strings.TrimSpace(m.Text) == "" {
		return entities.CanonicalMessage{}, false
	}
	msg := entities.CanonicalMessage{
		Channel: entities.ChannelTelegram,
		From:    fmt.Sprintf("telegram:%d", m.Chat.ID),
		Text:    m.Text,
		Raw:     update,
	}
	if botUserName != "" {
		msg.To = "telegram:@" + botUserName
	}
	return msg, true
}

// ConnectBot starts polling for tenantID with token until ctx is done.
func (m *TelegramBotManager) ConnectBot(ctx context.Context, tenantID, token string) (*TelegramBotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.bots[tenantID]; ok && existing.running() {
		return existing, nil
	}

	bot, err := m.newBot(token)
	if err != nil {
		return nil, eris.Wrapf(err, "telegram: create bot for %s", tenantID)
	}
	instance := &TelegramBotInstance{
		Bot:      bot,
		TenantID: tenantID,
		stop:     make(chan struct{}),
		// Marked before the poller starts so a concurrent ConnectBot reuses it.
		isRunning: true,
	}
	m.bots[tenantID] = instance

	go m.startPolling(ctx, instance)
	return instance, nil
}

// Run starts every configured bot and stops them when ctx is done.
func (m *TelegramBotManager) Run(ctx context.Context, bots map[string]string) error {
	for tenantID, token := range bots {
		if _, err := m.ConnectBot(ctx, tenantID, token); err != nil {
			m.log.Error("telegram bot not started", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	<-ctx.Done()
	m.DisconnectAll()
	return nil
}

func (m *TelegramBotManager) startPolling(ctx context.Context, instance *TelegramBotInstance) {
	defer func() {
		instance.mu.Lock()
		instance.isRunning = false
		instance.mu.Unlock()
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := instance.Bot.GetUpdatesChan(u)
	defer instance.Bot.StopReceivingUpdates()

	log := m.log.With(zap.String("tenant_id", instance.TenantID), zap.String("bot", instance.Bot.Self.UserName))
	log.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			log.Info("telegram polling stopped")
			return
		case <-instance.stop:
			log.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go m.handleUpdate(ctx, instance.TenantID, instance.Bot.Self.UserName, instance.Bot, update)
		}
	}
}

func (m *TelegramBotManager) handleUpdate(ctx context.Context, tenantID, botUserName string, bot botSender, update tgbotapi.Update) {
	msg, ok := MessageFromUpdate(update, botUserName)
	if !ok {
		return
	}
	out := TelegramMessenger{bot: bot}

	if update.Message.IsCommand() && update.Message.Command() == "start" {
		cfg := m.tenants.Get(ctx, tenantID).WithDefaults()
		if err := out.SendMessage(ctx, msg.From, Greeting(cfg.DisplayName)); err != nil {
			m.log.Error("telegram greeting failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return
	}

	release := m.sessions.Acquire(msg.From)
	defer release()
	if _, err := m.responder.Respond(ctx, msg, tenantID, out, msg.From); err != nil {
		m.log.Error("telegram reply failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// Status reports whether tenantID's bot is polling and its username.
func (m *TelegramBotManager) Status(tenantID string) (connected bool, botName string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if instance, ok := m.bots[tenantID]; ok && instance.running() {
		return true, instance.Bot.Self.UserName
	}
	return false, ""
}

// DisconnectBot stops a tenant's bot
func (m *TelegramBotManager) DisconnectBot(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instance, ok := m.bots[tenantID]; ok {
		close(instance.stop)
		delete(m.bots, tenantID)
	}
}

// DisconnectAll stops all bots (for graceful shutdown)
func (m *TelegramBotManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, instance := range m.bots {
		close(instance.stop)
	}
	m.bots = make(map[string]*TelegramBotInstance)
}
