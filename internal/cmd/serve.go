package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/foreman-sh/foreman/internal/chat"
	"github.com/foreman-sh/foreman/internal/commandloop"
	"github.com/foreman-sh/foreman/internal/config"
	"github.com/foreman-sh/foreman/internal/fileimpact"
	"github.com/foreman-sh/foreman/internal/filelock"
	"github.com/foreman-sh/foreman/internal/grouping"
	"github.com/foreman-sh/foreman/internal/logger"
	"github.com/foreman-sh/foreman/internal/orchestrator"
	"github.com/foreman-sh/foreman/internal/store"
	"github.com/foreman-sh/foreman/internal/telegram"
)

// NewServeCommand wires up the long-running daemon: the store, the
// orchestrator, the chat dispatcher, the command loop, and a Telegram
// transport per configured bot type, grounded on the teacher's
// internal/cmd/run.go daemon wiring.
func NewServeCommand() *cobra.Command {
	var (
		configPath   string
		workerBinary string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, configPath, workerBinary)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "foreman.yaml", "path to config file")
	cmd.Flags().StringVar(&workerBinary, "worker", "foreman-worker", "path to the worker agent binary")
	return cmd
}

func serve(cmd *cobra.Command, configPath, workerBinary string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock := filelock.NewFileLock(cfg.Store.Path + ".lock")
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another foreman serve already holds %s.lock", cfg.Store.Path)
	}
	defer lock.Unlock()

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	fileLog, err := logger.NewFileLogger(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("open file logger: %w", err)
	}
	defer fileLog.Close()
	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	log := logger.NewMultiLogger(consoleLog, fileLog)

	bus := orchestrator.NewBus()
	orch := orchestrator.New(db, workerBinary, cfg.Failure.MaxConsecutiveFailures, bus, log)

	reg := chat.NewRegistry("system")
	clients := make(map[string]*telegram.Client)
	for botType, token := range cfg.Telegram.BotTokens {
		c := telegram.NewClient(botType, token)
		clients[botType] = c
		reg.Register(c)
	}

	dispatcher := chat.NewDispatcher(reg, db, cfg.Chat.MessagesPerMinute, cfg.Chat.DedupWindow, cfg.Chat.ChunkSize)

	learning := fileimpact.NewLearningStore(db.DB())
	analyser := fileimpact.NewAnalyser(learning)
	engine := grouping.NewEngine(grouping.Config{
		Threshold:    cfg.Grouping.Threshold,
		MinGroupSize: cfg.Grouping.MinGroupSize,
		MaxGroupSize: cfg.Grouping.MaxGroupSize,
	})
	suggestions := grouping.NewSuggestionStore(db)

	handler := commandloop.New(db, orch, dispatcher, analyser, engine, suggestions)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go dispatcher.Watch(ctx, cfg.Chat.HealthInterval)
	go handler.Watch(ctx, bus)

	onUpdate := func(u telegram.Update) {
		handleUpdate(ctx, handler, dispatcher, u)
	}

	var httpServer *http.Server
	if !cfg.Telegram.UseWebhook {
		for _, client := range clients {
			go telegram.Poll(ctx, client, onUpdate)
		}
	}

	if cfg.Telegram.UseWebhook {
		mux := http.NewServeMux()
		mux.Handle("/telegram/webhook", telegram.Handler(cfg.Telegram.WebhookSecret, onUpdate))
		httpServer = &http.Server{Addr: ":8080", Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(cmd.ErrOrStderr(), "webhook server: %v\n", err)
			}
		}()
		for botType, client := range clients {
			webhookURL := cfg.Telegram.WebhookURL
			if err := client.SetWebhook(ctx, webhookURL, cfg.Telegram.WebhookSecret); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "set webhook for %s: %v\n", botType, err)
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "foreman serving (%d bot(s) registered)\n", len(clients))

	<-ctx.Done()

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "foreman stopped")
	return nil
}

// handleUpdate routes a Telegram update to the command loop and sends
// its reply back through the same chat the update arrived on.
func handleUpdate(ctx context.Context, handler *commandloop.Handler, dispatcher *chat.Dispatcher, u telegram.Update) {
	var channelID string
	var reply string

	switch {
	case u.Message != nil:
		channelID = fmt.Sprint(u.Message.Chat.ID)
		reply = handler.HandleMessage(ctx, "system", channelID, u.Message.Text)
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		channelID = fmt.Sprint(u.CallbackQuery.Message.Chat.ID)
		reply = handler.HandleCallback(ctx, "system", channelID, u.CallbackQuery.Data)
	default:
		return
	}

	if reply == "" {
		return
	}
	if err := dispatcher.Send(ctx, "system", channelID, "reply", reply, chat.ChatRefs{}); err != nil {
		fmt.Printf("send reply: %v\n", err)
	}
}
