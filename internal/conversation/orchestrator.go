package conversation

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
	"github.com/mariusznazar/airdevs3-app/internal/config"
	"github.com/mariusznazar/airdevs3-app/internal/llm"
	"github.com/mariusznazar/airdevs3-app/internal/mediacache"
)

const (
	// photosTask is the remote task name of the photo-repair conversation.
	photosTask = "photos"
	// startAnswer opens a new conversation with the remote party.
	startAnswer = "START"
	// analyzeAllCommand triggers a full reanalysis round instead of being
	// forwarded to the remote party.
	analyzeAllCommand = "ANALYZE_ALL"
	// submitDescriptionAction tells the caller the final description is ready.
	submitDescriptionAction = "SUBMIT_DESCRIPTION"
)

// Orchestrator drives the photo-repair conversation. Every public operation
// returns a uniform Response envelope and never an error: failures are folded
// into error-status responses at this boundary.
type Orchestrator struct {
	api      schemas.TaskAPI
	ai       schemas.AIService
	cache    *mediacache.Cache
	fetcher  schemas.MediaFetcher
	sessions SessionStore
	cfg      config.ConversationConfig
	log      *zap.Logger
}

// NewOrchestrator wires the conversation dependencies together.
func NewOrchestrator(
	api schemas.TaskAPI,
	ai schemas.AIService,
	cache *mediacache.Cache,
	fetcher schemas.MediaFetcher,
	sessions SessionStore,
	cfg config.ConversationConfig,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		api:      api,
		ai:       ai,
		cache:    cache,
		fetcher:  fetcher,
		sessions: sessions,
		cfg:      cfg,
		log:      logger.Named("conversation"),
	}
}

// StartConversation opens a new session and sends the START answer to the
// remote party. The returned session ID keys all subsequent operations.
func (o *Orchestrator) StartConversation(ctx context.Context) (string, schemas.Response) {
	session := NewSession(o.cfg)
	o.sessions.Put(session)

	o.log.Info("Starting conversation", zap.String("session_id", session.ID))
	reply, err := o.api.Report(ctx, photosTask, startAnswer)
	if err != nil {
		o.log.Error("Failed to start conversation", zap.Error(err))
		return session.ID, schemas.ErrorResponse(err)
	}

	session.History.Add(schemas.RoleAPI, reply.Message)
	return session.ID, schemas.Response{Status: schemas.StatusSuccess, Message: reply.Message}
}

// SendCommand dispatches one command for the session. ANALYZE_ALL runs a full
// local reanalysis round, ANALYZE commands are resolved locally without a
// remote round-trip, everything else is forwarded verbatim to the remote
// party.
func (o *Orchestrator) SendCommand(ctx context.Context, sessionID, command string) schemas.Response {
	session, ok := o.sessions.Get(sessionID)
	if !ok {
		return schemas.ErrorResponse(fmt.Errorf("unknown session %q", sessionID))
	}

	// Count earlier rounds before this command lands in the history.
	previousRounds := session.History.CountContaining(analyzeAllCommand)
	session.History.Add(schemas.RoleUser, "Command: "+command)

	normalized := Normalize(command)
	if normalized == analyzeAllCommand {
		return o.reanalyze(ctx, session, previousRounds)
	}

	session.Tracker.Record(command)

	if strings.HasPrefix(normalized, analyzePrefix) {
		fields := strings.Fields(command)
		if len(fields) != 2 {
			return schemas.ErrorResponse(fmt.Errorf("malformed analyze command %q", command))
		}
		imageURL := o.fetcher.MediaURL(fields[1])
		o.log.Info("Analyzing image locally", zap.String("url", imageURL))
		return schemas.Response{
			Status:   schemas.StatusSuccess,
			Message:  "Analyzing new image: " + fields[1],
			ImageURL: imageURL,
		}
	}

	reply, err := o.api.Report(ctx, photosTask, command)
	if err != nil {
		o.log.Error("Failed to send command", zap.String("command", command), zap.Error(err))
		return schemas.ErrorResponse(err)
	}
	session.History.Add(schemas.RoleAPI, reply.Message)
	return schemas.Response{Status: schemas.StatusSuccess, Message: reply.Message}
}

// reanalyze handles an ANALYZE_ALL round. The first round reviews everything
// gathered so far and suggests further commands; once the configured number
// of rounds is reached it produces the final description instead and tells
// the caller to submit it.
func (o *Orchestrator) reanalyze(ctx context.Context, session *Session, previousRounds int) schemas.Response {
	cached, err := o.cache.All(ctx)
	if err != nil {
		o.log.Error("Failed to load cached analyses", zap.Error(err))
		return schemas.ErrorResponse(err)
	}

	if previousRounds+1 >= o.cfg.AnalyzeAllRounds {
		o.log.Info("Final reanalysis round, generating description",
			zap.String("session_id", session.ID), zap.Int("round", previousRounds+1))

		messages := llm.DescriptionMessages(cached, session.History.All(), session.Tracker.Attempts())
		description, err := o.ai.Complete(ctx, messages, schemas.CompletionOptions{})
		if err != nil {
			o.log.Error("Failed to generate description", zap.Error(err))
			return schemas.ErrorResponse(err)
		}
		session.Analyses.Add(description)
		return schemas.Response{
			Status:           schemas.StatusSuccess,
			Message:          "Generated description",
			Analysis:         description,
			SuggestedActions: []string{submitDescriptionAction},
		}
	}

	o.log.Info("Reanalysis round", zap.String("session_id", session.ID), zap.Int("round", previousRounds+1))
	messages := []schemas.ChatMessage{
		{Role: schemas.ChatSystem, Content: llm.SystemPrompt},
		{Role: schemas.ChatUser, Content: llm.BuildReanalysisPrompt(cached, session.Tracker.Attempts(), o.cfg.MaxRetriesPerAction)},
	}
	analysis, err := o.ai.Complete(ctx, messages, schemas.CompletionOptions{})
	if err != nil {
		o.log.Error("Reanalysis failed", zap.Error(err))
		return schemas.ErrorResponse(err)
	}
	session.Analyses.Add(analysis)

	return schemas.Response{
		Status:           schemas.StatusSuccess,
		Message:          "Reanalysis completed",
		Analysis:         analysis,
		SuggestedActions: commandStrings(ExtractCommands(analysis, session.Tracker)),
	}
}

// SendDescription submits the final description to the remote party.
func (o *Orchestrator) SendDescription(ctx context.Context, sessionID, description string) schemas.Response {
	session, ok := o.sessions.Get(sessionID)
	if !ok {
		return schemas.ErrorResponse(fmt.Errorf("unknown session %q", sessionID))
	}

	session.History.Add(schemas.RoleUser, "Description: "+description)
	reply, err := o.api.Report(ctx, photosTask, description)
	if err != nil {
		o.log.Error("Failed to send description", zap.Error(err))
		return schemas.ErrorResponse(err)
	}
	session.History.Add(schemas.RoleAPI, reply.Message)
	return schemas.Response{Status: schemas.StatusSuccess, Message: reply.Message}
}

// ProcessMessage runs the full pipeline over one remote message: sweep the
// cache, extract and analyze image references one at a time, fold everything
// into an analysis prompt, and mine the model's answer for follow-up
// commands.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, message string) schemas.Response {
	session, ok := o.sessions.Get(sessionID)
	if !ok {
		return schemas.ErrorResponse(fmt.Errorf("unknown session %q", sessionID))
	}

	session.History.Add(schemas.RoleAPI, message)

	if _, err := o.cache.Cleanup(ctx); err != nil {
		o.log.Warn("Cache cleanup failed", zap.Error(err))
	}

	urls := ExtractImageURLs(message, o.fetcher.MediaURL)
	o.log.Info("Processing message", zap.Int("images", len(urls)))

	var processed []schemas.MediaAnalysis
	var failed []string
	for _, url := range urls {
		fileName := path.Base(url)
		analysis, err := o.cache.Analyze(ctx, fileName)
		if err != nil {
			o.log.Error("Failed to process image", zap.String("url", url), zap.Error(err))
			failed = append(failed, fileName)
			continue
		}
		processed = append(processed, *analysis)
	}

	cached, err := o.cache.All(ctx)
	if err != nil {
		o.log.Error("Failed to load cached analyses", zap.Error(err))
		return schemas.ErrorResponse(err)
	}

	prompt := llm.BuildAnalysisPrompt(llm.PromptContext{
		Message:         message,
		ProcessedImages: processed,
		CachedAnalyses:  cached,
		History:         session.History.All(),
		Analyses:        session.Analyses.All(),
		Attempts:        session.Tracker.Attempts(),
		MaxRetries:      o.cfg.MaxRetriesPerAction,
	})
	analysis, err := o.ai.Complete(ctx, []schemas.ChatMessage{
		{Role: schemas.ChatSystem, Content: llm.SystemPrompt},
		{Role: schemas.ChatUser, Content: prompt},
	}, schemas.CompletionOptions{})
	if err != nil {
		o.log.Error("Message analysis failed", zap.Error(err))
		return schemas.ErrorResponse(err)
	}
	session.Analyses.Add(analysis)

	suggested := commandStrings(ExtractCommands(analysis, session.Tracker))

	// Images that failed processing still get a synthetic ANALYZE so they are
	// retried next round.
	for _, fileName := range failed {
		suggested = append(suggested, string(schemas.ActionAnalyze)+" "+fileName)
	}

	// Without any actionable suggestion, fall back to reanalyzing everything
	// already cached so the conversation keeps moving.
	if len(suggested) == 0 && len(cached) > 0 {
		o.log.Info("No suggested actions, reanalyzing all cached images")
		for _, entry := range cached {
			suggested = append(suggested, string(schemas.ActionAnalyze)+" "+entry.FileName)
		}
	}

	return schemas.Response{
		Status:           schemas.StatusSuccess,
		Message:          message,
		ProcessedImages:  processed,
		CachedAnalyses:   cached,
		Analysis:         analysis,
		SuggestedActions: suggested,
	}
}

// ClearCache drops every cached analysis and resets the session state.
func (o *Orchestrator) ClearCache(ctx context.Context, sessionID string) schemas.Response {
	if err := o.cache.Clear(ctx); err != nil {
		o.log.Error("Failed to clear cache", zap.Error(err))
		return schemas.ErrorResponse(err)
	}
	if session, ok := o.sessions.Get(sessionID); ok {
		session.Reset()
	}
	o.log.Info("Cache cleared")
	return schemas.Response{Status: schemas.StatusSuccess, Message: "Cache cleared successfully"}
}

func commandStrings(commands []schemas.Command) []string {
	if len(commands) == 0 {
		return nil
	}
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		out = append(out, c.String())
	}
	return out
}
