package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "REPAIR IMG_559.PNG", Normalize("repair   img_559.png"))
	assert.Equal(t, "DARKEN IMG.PNG", Normalize("  Darken \t IMG.png "))
	assert.Equal(t, "", Normalize("   "))
}

func TestTracker(t *testing.T) {
	t.Parallel()

	t.Run("actions exhaust after the retry budget", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker(2)

		assert.True(t, tr.ShouldExecute("REPAIR IMG_1.PNG"))
		tr.Record("REPAIR IMG_1.PNG")
		assert.True(t, tr.ShouldExecute("REPAIR IMG_1.PNG"))
		tr.Record("repair  img_1.png") // same action, different spelling
		assert.False(t, tr.ShouldExecute("REPAIR IMG_1.PNG"))

		// Another action is unaffected.
		assert.True(t, tr.ShouldExecute("DARKEN IMG_1.PNG"))
	})

	t.Run("analyze commands are never cut off", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker(2)
		for i := 0; i < 5; i++ {
			assert.True(t, tr.ShouldExecute("ANALYZE IMG_1.PNG"))
			tr.Record("ANALYZE IMG_1.PNG")
		}
		assert.Equal(t, 5, tr.Attempts()["ANALYZE IMG_1.PNG"])
	})

	t.Run("reset drops all counts", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker(1)
		tr.Record("REPAIR IMG_1.PNG")
		assert.False(t, tr.ShouldExecute("REPAIR IMG_1.PNG"))

		tr.Reset()
		assert.True(t, tr.ShouldExecute("REPAIR IMG_1.PNG"))
		assert.Empty(t, tr.Attempts())
	})

	t.Run("executed lists normalized actions sorted", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker(2)
		tr.Record("repair b.png")
		tr.Record("DARKEN a.png")
		assert.Equal(t, []string{"DARKEN A.PNG", "REPAIR B.PNG"}, tr.Executed())
	})
}

func TestExtractCommands(t *testing.T) {
	t.Parallel()

	t.Run("recognizes bare and bracketed forms", func(t *testing.T) {
		t.Parallel()
		text := "Proszę wykonać REPAIR img1.png oraz DARKEN [img2.PNG], to powinno pomóc."
		commands := ExtractCommands(text, nil)
		assert.Len(t, commands, 2)
		assert.Equal(t, "REPAIR img1.png", commands[0].String())
		assert.Equal(t, "DARKEN img2.PNG", commands[1].String())
	})

	t.Run("ignores unknown extensions", func(t *testing.T) {
		t.Parallel()
		commands := ExtractCommands("REPAIR notanimage.txt i BRIGHTEN raport.pdf", nil)
		assert.Empty(t, commands)
	})

	t.Run("deduplicates keeping first occurrence", func(t *testing.T) {
		t.Parallel()
		text := "BRIGHTEN img.png, potem jeszcze raz brighten IMG.PNG"
		commands := ExtractCommands(text, nil)
		assert.Len(t, commands, 1)
		assert.Equal(t, "BRIGHTEN img.png", commands[0].String())
	})

	t.Run("drops exhausted actions without recording them", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker(1)
		tr.Record("REPAIR IMG.PNG")

		commands := ExtractCommands("REPAIR img.png oraz DARKEN img.png", tr)
		assert.Len(t, commands, 1)
		assert.Equal(t, "DARKEN img.png", commands[0].String())
		// The dropped command must not burn another attempt.
		assert.Equal(t, 1, tr.Attempts()["REPAIR IMG.PNG"])
	})

	t.Run("uppercase action keeps original filename case", func(t *testing.T) {
		t.Parallel()
		commands := ExtractCommands("sugeruję repair IMG_559.png", nil)
		assert.Len(t, commands, 1)
		assert.Equal(t, "REPAIR IMG_559.png", commands[0].String())
	})
}

func TestExtractImageURLs(t *testing.T) {
	t.Parallel()

	resolve := func(name string) string {
		return "https://centrala.ag3nts.org/dane/barbara/" + name
	}

	t.Run("resolves bare filenames and keeps full urls", func(t *testing.T) {
		t.Parallel()
		message := "Oto IMG_1.PNG oraz https://example.com/media/IMG_2.JPG do analizy"
		urls := ExtractImageURLs(message, resolve)
		assert.Equal(t, []string{
			"https://example.com/media/IMG_2.JPG",
			"https://centrala.ag3nts.org/dane/barbara/IMG_1.PNG",
			"https://centrala.ag3nts.org/dane/barbara/IMG_2.JPG",
		}, urls)
	})

	t.Run("deduplicates repeated references", func(t *testing.T) {
		t.Parallel()
		urls := ExtractImageURLs("IMG_1.PNG, ponownie IMG_1.PNG", resolve)
		assert.Len(t, urls, 1)
	})

	t.Run("no references yields nothing", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, ExtractImageURLs("brak zdjęć w tej wiadomości", resolve))
	})
}
