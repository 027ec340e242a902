package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meal-optimizer/internal/config"
	"meal-optimizer/internal/metrics"
	"meal-optimizer/internal/optimizer"
	"meal-optimizer/internal/planner"
	"meal-optimizer/internal/ratings"
	"meal-optimizer/internal/shared"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API and the meal planner.
type Bot struct {
	api          *tgbotapi.BotAPI
	planner      *planner.Planner
	planRepo     *planner.PlanRepository
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, mealPlanner *planner.Planner, planRepo *planner.PlanRepository, metricsStore *metrics.Store) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		planner:      mealPlanner,
		planRepo:     planRepo,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the given mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !isAllowed(b.cfg.TelegramAllowedUserIDs, update.Message.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func isAllowed(allowed []int64, id int64) bool {
	for _, a := range allowed {
		if a == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch msg.Command() {
	case "plan":
		b.handlePlanRequest(ctx, msg)
	case "profiles":
		b.reply(msg.Chat.ID, formatProfiles(b.planner.Profiles()))
	case "rate":
		b.handleRateRequest(ctx, msg)
	case "resetratings":
		n, err := b.planner.ResetRatings(ctx)
		if err != nil {
			log.Printf("Error resetting ratings: %v", err)
			b.reply(msg.Chat.ID, "❌ Failed to reset ratings.")
			return
		}
		b.reply(msg.Chat.ID, fmt.Sprintf("✅ Ratings for all %d meals reset to 5.", n))
	case "history":
		b.handleHistoryRequest(ctx, msg)
	case "metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetricsCommand(ctx, msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

const helpText = "🥗 *Meal Optimizer*\n\n" +
	"/plan [profile] [minimize\\_cost|maximize\\_rating] [cap] - plan the week\n" +
	"/profiles - list nutritional profiles\n" +
	"/rate <1-10> <meal title> - rate a meal\n" +
	"/resetratings - reset every rating to 5\n" +
	"/history - your recent plans"

func (b *Bot) handlePlanRequest(ctx context.Context, msg *tgbotapi.Message) {
	req, err := parsePlanArgs(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, "❌ "+tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error()))
		return
	}
	req.UserID = strconv.FormatInt(msg.From.ID, 10)
	req.TimeLimit = b.cfg.SolverTimeLimit

	sentMsg, err := b.api.Send(markdown(msg.Chat.ID, "🧮 *Optimizing...* \n(Building and solving your weekly plan)"))
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	log.Printf("Generating plan for user %s: %+v", req.UserID, req)
	sol, err := b.planner.GeneratePlan(ctx, req)

	var finalText string
	if err != nil {
		log.Printf("Error generating plan: %v", err)
		finalText = formatPlanError(err)
	} else {
		finalText = formatPlanMarkdown(sol)
	}
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, finalText)
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.api.Send(edit)
}

// parsePlanArgs reads "[profile] [objective] [cap]" in any order.
func parsePlanArgs(args string) (planner.Request, error) {
	var req planner.Request
	for _, tok := range strings.Fields(args) {
		if _, err := optimizer.ParseObjective(tok); err == nil {
			req.Objective = tok
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			if n < 1 {
				return planner.Request{}, fmt.Errorf("repeat cap must be at least 1, got %d", n)
			}
			req.MealFrequencyCap = n
			continue
		}
		if req.ProfileName != "" {
			return planner.Request{}, fmt.Errorf("unexpected argument %q", tok)
		}
		req.ProfileName = tok
	}
	return req, nil
}

func (b *Bot) handleRateRequest(ctx context.Context, msg *tgbotapi.Message) {
	rating, title, err := parseRateArgs(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, "❌ "+tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error()))
		return
	}
	err = b.planner.RateMeal(ctx, title, rating)
	switch {
	case errors.Is(err, planner.ErrMealNotFound):
		b.reply(msg.Chat.ID, "🔍 Meal not found: "+tgbotapi.EscapeText(tgbotapi.ModeMarkdown, title))
	case errors.Is(err, ratings.ErrInvalidRating):
		b.reply(msg.Chat.ID, "❌ Rating must be between 1 and 10.")
	case err != nil:
		log.Printf("Error saving rating: %v", err)
		b.reply(msg.Chat.ID, "❌ Failed to save rating.")
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("⭐ Rating updated to %g for *%s*", rating, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, title)))
	}
}

// parseRateArgs reads "<rating> <title...>".
func parseRateArgs(args string) (float64, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("usage: /rate <1-10> <meal title>")
	}
	rating, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", fmt.Errorf("rating must be a number, got %q", fields[0])
	}
	return rating, strings.Join(fields[1:], " "), nil
}

func (b *Bot) handleHistoryRequest(ctx context.Context, msg *tgbotapi.Message) {
	plans, err := b.planRepo.ListRecentByUserID(ctx, strconv.FormatInt(msg.From.ID, 10), 5)
	if err != nil {
		log.Printf("Error listing plans: %v", err)
		b.reply(msg.Chat.ID, "❌ Error fetching your plans.")
		return
	}
	b.reply(msg.Chat.ID, formatHistory(plans))
}

func formatPlanMarkdown(sol *optimizer.Solution) string {
	var pb strings.Builder
	if !sol.Status.HasSolution() {
		pb.WriteString("🚫 *No plan found*\n\n")
		pb.WriteString(tgbotapi.EscapeText(tgbotapi.ModeMarkdown, sol.Message))
		return pb.String()
	}

	pb.WriteString("📅 *Weekly Meal Plan*\n")
	pb.WriteString(fmt.Sprintf("_Profile: %s · %s_\n\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, sol.ProfileUsed), sol.Status))

	for _, day := range sol.Schedule {
		if len(day.Meals) == 0 {
			pb.WriteString(fmt.Sprintf("*%s*: -\n", day.Day))
			continue
		}
		titles := make([]string, len(day.Meals))
		for i, s := range day.Meals {
			titles[i] = fmt.Sprintf("%s ($%.2f)", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s.Meal.Title), s.Cost)
		}
		pb.WriteString(fmt.Sprintf("*%s*: %s\n", day.Day, strings.Join(titles, ", ")))
	}

	pb.WriteString(fmt.Sprintf("\n💰 *Total Cost:* $%.2f\n", sol.TotalCost))
	if sol.ObjectiveValue != nil {
		pb.WriteString(fmt.Sprintf("🎯 *Objective:* %.2f\n", *sol.ObjectiveValue))
	}

	if cal, ok := sol.NutrientSummary["calories"]; ok {
		pb.WriteString("\n🥦 *Daily Averages*\n")
		pb.WriteString(fmt.Sprintf("• Calories: %.0f\n", cal.Average))
		for _, key := range []string{"protein", "carbs", "fat"} {
			pb.WriteString(fmt.Sprintf("• %s: %.1fg\n", strings.ToUpper(key[:1])+key[1:], sol.NutrientSummary[key].Average))
		}
	}
	return pb.String()
}

func formatPlanError(err error) string {
	var de *shared.DataError
	var me *shared.ModelError
	var se *shared.SolverError
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	switch {
	case errors.As(err, &me):
		return fmt.Sprintf("❌ *Invalid request:*\n```\n%s\n```", safeErr)
	case errors.As(err, &de):
		return fmt.Sprintf("❌ *Bad meal data:*\n```\n%s\n```", safeErr)
	case errors.As(err, &se):
		return fmt.Sprintf("⏱ *The solver gave up after %d attempt(s).* Try again or relax the profile.", se.Attempts)
	}
	return fmt.Sprintf("❌ *Error generating plan:*\n```\n%s\n```", safeErr)
}

func formatProfiles(names []string) string {
	if len(names) == 0 {
		return "_No profiles configured_"
	}
	var sb strings.Builder
	sb.WriteString("📋 *Nutritional Profiles*\n\n")
	for _, n := range names {
		sb.WriteString(fmt.Sprintf("• %s\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, n)))
	}
	return sb.String()
}

func formatHistory(plans []planner.StoredPlan) string {
	if len(plans) == 0 {
		return "_No plans yet. Try /plan_"
	}
	var sb strings.Builder
	sb.WriteString("🗂 *Recent Plans*\n\n")
	for _, p := range plans {
		line := fmt.Sprintf("• %s · %s · %s", p.CreatedAt.Format("2006-01-02 15:04"),
			tgbotapi.EscapeText(tgbotapi.ModeMarkdown, p.Profile), tgbotapi.EscapeText(tgbotapi.ModeMarkdown, p.Objective))
		if sol, err := p.Solution(); err == nil {
			line += fmt.Sprintf(" · $%.2f", sol.TotalCost)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(ctx, 7)
	if err != nil {
		b.api.Send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}
	b.reply(chatID, formatMetrics(usage, metrics.GetSysHealth(b.cfg.DatabasePath)))
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Solves*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d solves (%d optimal, %d infeasible, %d failed), avg %.0fms\n",
			d.Date, d.Solves, d.Optimal, d.Infeasible, d.Failed, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d · GC cycles: %d\n", health.Goroutines, health.NumGC))
	sb.WriteString(fmt.Sprintf("• Database: %s\n", health.DatabaseSize))
	return sb.String()
}

func markdown(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(markdown(chatID, text)); err != nil {
		log.Printf("Failed to send reply: %v", err)
	}
}
