// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/config"
	"fitrpg-bot/internal/handler"
	"fitrpg-bot/internal/pkg/lock"
	"fitrpg-bot/internal/service"
	"fitrpg-bot/internal/shop"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	access   *PrivateAccess
	engine   *service.Engine
	userLock *lock.UserLock

	// Handlers
	activityHandler  *handler.ActivityHandler
	accountHandler   *handler.AccountHandler
	rankingHandler   *handler.RankingHandler
	shopHandler      *handler.ShopHandler
	encounterHandler *handler.EncounterHandler
	adminHandler     *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config   *config.Config
	Engine   *service.Engine
	UserLock *lock.UserLock
}

// NewClient creates the telebot client. It is created before the engine so
// the Telegram notifier can be handed to the engine.
func NewClient(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}

	client, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return client, nil
}

// New creates a new Bot on client with the given dependencies.
func New(client *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot:      client,
		cfg:      deps.Config,
		access:   NewPrivateAccess(),
		engine:   deps.Engine,
		userLock: deps.UserLock,
	}

	// Initialize handlers
	b.activityHandler = handler.NewActivityHandler(deps.Engine, deps.UserLock)
	b.accountHandler = handler.NewAccountHandler(deps.Engine)
	b.rankingHandler = handler.NewRankingHandler(deps.Engine)
	b.shopHandler = handler.NewShopHandler(deps.Engine, deps.UserLock)
	b.encounterHandler = handler.NewEncounterHandler(deps.Engine, deps.UserLock)
	b.adminHandler = handler.NewAdminHandler(deps.Engine, lock.NewChannelLock())

	b.registerMiddleware()
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.access))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleStart)
	b.bot.Handle("/profile", b.accountHandler.HandleProfile)
	b.bot.Handle("/top", b.rankingHandler.HandleTop)

	// Workout logging
	b.bot.Handle("/log", b.activityHandler.HandleLog)
	b.bot.Handle("/p", b.activityHandler.HandlePushups)
	b.bot.Handle("/plank", b.activityHandler.HandlePlank)
	b.bot.Handle("/run", b.activityHandler.HandleRun)

	// Shop handlers
	b.bot.Handle("/shop", b.shopHandler.HandleShop)
	b.bot.Handle("/buy", b.shopHandler.HandleBuy)
	b.bot.Handle("/equip", b.shopHandler.HandleEquip)
	b.bot.Handle("/use", b.shopHandler.HandleUse)

	// Encounter handlers
	b.bot.Handle("/hunt", b.encounterHandler.HandleHunt)
	b.bot.Handle("/hunt_join", b.encounterHandler.HandleHuntJoin)
	b.bot.Handle("/hunt_leave", b.encounterHandler.HandleHuntLeave)
	b.bot.Handle("/hunt_status", b.encounterHandler.HandleHuntStatus)
	b.bot.Handle("/raid_status", b.encounterHandler.HandleRaidStatus)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/hunt_cancel", b.adminHandler.HandleHuntCancel)
	adminGroup.Handle("/raid_start", b.adminHandler.HandleRaidStart)
	adminGroup.Handle("/raid_cancel", b.adminHandler.HandleRaidCancel)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	if strings.HasPrefix(data, shop.CallbackPrefix) {
		return b.shopHandler.HandleShopCallback(c)
	}
	return c.Respond()
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
