package llm

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	pc := PromptContext{
		Message: "Oto zdjęcia Barbary: IMG_1.PNG",
		ProcessedImages: []schemas.MediaAnalysis{
			{FileName: "IMG_1.PNG", Description: "niewyraźna sylwetka"},
		},
		CachedAnalyses: []schemas.MediaAnalysis{
			{FileName: "IMG_0.PNG", Description: "kobieta w okularach"},
		},
		Attempts:   map[string]int{"REPAIR IMG_1.PNG": 1},
		MaxRetries: 2,
	}

	prompt := BuildAnalysisPrompt(pc)
	assert.Contains(t, prompt, "Wiadomość: Oto zdjęcia Barbary: IMG_1.PNG")
	assert.Contains(t, prompt, "IMG_1.PNG: niewyraźna sylwetka")
	assert.Contains(t, prompt, "IMG_0.PNG: kobieta w okularach")
	assert.Contains(t, prompt, "REPAIR IMG_1.PNG (próby: 1)")

	t.Run("history is capped to the tail", func(t *testing.T) {
		t.Parallel()
		for i := 0; i < 8; i++ {
			pc.History = append(pc.History, schemas.Turn{
				Role:      schemas.RoleUser,
				Content:   fmt.Sprintf("turn-%d", i),
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			})
		}
		prompt := BuildAnalysisPrompt(pc)
		assert.NotContains(t, prompt, "turn-2")
		assert.Contains(t, prompt, "turn-3")
		assert.Contains(t, prompt, "turn-7")
	})
}

func TestDescriptionMessages(t *testing.T) {
	t.Parallel()

	messages := DescriptionMessages(
		[]schemas.MediaAnalysis{{FileName: "IMG_0.PNG", Description: "kobieta w okularach"}},
		[]schemas.Turn{{Role: schemas.RoleAPI, Content: "START", Timestamp: time.Now()}},
		map[string]int{"REPAIR IMG_0.PNG": 2},
	)

	assert.Len(t, messages, 2)
	assert.Equal(t, schemas.ChatSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "rysopis")
	assert.Equal(t, schemas.ChatUser, messages[1].Role)
	assert.Contains(t, messages[1].Content, "IMG_0.PNG")
	assert.Contains(t, messages[1].Content, "API: START")
}
