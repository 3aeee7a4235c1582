package cmd

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
	"github.com/mariusznazar/airdevs3-app/internal/config"
	"github.com/mariusznazar/airdevs3-app/internal/conversation"
	"github.com/mariusznazar/airdevs3-app/internal/mediacache"
)

type loopTask struct {
	mu      sync.Mutex
	answers []string
}

func (f *loopTask) Report(ctx context.Context, task string, answer any) (*schemas.TaskReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer.(string))
	return &schemas.TaskReply{Code: 0, Message: "Cześć, porozmawiajmy o zdjęciach"}, nil
}

func (f *loopTask) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.answers {
		if a == "START" {
			count++
		}
	}
	return count
}

type loopAI struct{}

func (loopAI) Complete(ctx context.Context, messages []schemas.ChatMessage, opts schemas.CompletionOptions) (string, error) {
	return "Rysopis Barbary: kobieta w okularach", nil
}

func (loopAI) AnalyzeImage(ctx context.Context, imageDataURI string) (string, error) {
	return "", errors.New("not implemented")
}

func (loopAI) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return "", errors.New("not implemented")
}

func (loopAI) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

type loopFetcher struct{}

func (loopFetcher) MediaURL(filename string) string {
	return "https://centrala.ag3nts.org/dane/barbara/" + filename
}

func (loopFetcher) Download(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func newLoopFixture(t *testing.T) (*conversation.Orchestrator, *loopTask, config.ConversationConfig) {
	t.Helper()
	task := &loopTask{}
	ai := loopAI{}
	cache := mediacache.New(mediacache.NewMemoryStore(), loopFetcher{}, ai, 0, t.TempDir(), zap.NewNop())
	cfg := config.ConversationConfig{
		MaxRetriesPerAction: 2,
		HistoryLimit:        10,
		AnalyzeAllRounds:    1,
	}
	orch := conversation.NewOrchestrator(
		task, ai, cache, loopFetcher{},
		conversation.NewMemorySessionStore(), cfg, zap.NewNop(),
	)
	return orch, task, cfg
}

func TestRunPhotosLoop(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{}
		c.SetOut(&bytes.Buffer{})
		return c
	}

	t.Run("converges on a description", func(t *testing.T) {
		orch, task, cfg := newLoopFixture(t)

		err := runPhotosLoop(context.Background(), newCmd(), orch, cfg, 3, false)
		require.NoError(t, err)
		assert.Equal(t, 1, task.starts())
	})

	t.Run("clearing the cache sends a single opening answer", func(t *testing.T) {
		orch, task, cfg := newLoopFixture(t)

		err := runPhotosLoop(context.Background(), newCmd(), orch, cfg, 3, true)
		require.NoError(t, err)
		assert.Equal(t, 1, task.starts())
	})
}
