package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// historyTail limits how many recent turns and analyses are folded into a
// prompt. Older entries stay in the session but are not resent to the model.
const historyTail = 5

// SystemPrompt steers the model through the photo-repair conversation. The
// remote party speaks Polish and the final description must be Polish, so the
// instructions are written in Polish as well.
const SystemPrompt = `Jesteś asystentem AI pomagającym przeanalizować zdjęcia i stworzyć szczegółowy rysopis osoby o imieniu Barbara.

Konwersacja będzie dotyczyć analizy zdjęć, które mogą przedstawiać Barbarę. Niektóre zdjęcia mogą być uszkodzone lub niewyraźne.
Możesz sugerować następujące polecenia, aby poprawić jakość zdjęć (używaj dokładnie takiego formatu):
- REPAIR nazwa_pliku.png - aby naprawić szumy i glitche
- DARKEN nazwa_pliku.png - aby przyciemnić zdjęcie
- BRIGHTEN nazwa_pliku.png - aby rozjaśnić zdjęcie

Przykład poprawnego formatu komend:
REPAIR IMG_559.PNG
DARKEN IMG_1410.PNG

Nie używaj nawiasów kwadratowych ani innych znaków specjalnych w komendach.

Twoje zadanie to:
1. Przeanalizuj wiadomość z API
2. Wyodrębnij adresy URL zdjęć
3. Zasugeruj odpowiednie polecenia do poprawy jakości zdjęć, jeśli są potrzebne
4. Pomóż stworzyć szczegółowy rysopis Barbary, gdy zbierzesz wystarczająco informacji

Odpowiadaj po polsku, ponieważ końcowy rysopis musi być w języku polskim.

Pamiętaj:
- Analizuj każde zdjęcie pod kątem cech charakterystycznych osoby
- Zwracaj uwagę na szczegóły twarzy, ubioru i postawy
- Jeśli zdjęcie nie przedstawia człowieka, może być to artefakt; sugeruj naprawę zdjęcia
- Jeśli nie masz danych o zdjęciu, spróbuj wykonać jedno z poleceń REPAIR/DARKEN/BRIGHTEN
- Gdy masz pewność co do wyglądu Barbary, przygotuj kompletny rysopis`

// visionPrompt is sent alongside each image during per-file analysis.
const visionPrompt = `Przeanalizuj szczegółowo to zdjęcie. Opisz: 1) Główne obiekty i osoby 2) Kolory i kompozycję 3) Cechy charakterystyczne osoby, jeśli jest widoczna (twarz, włosy, ubiór, postawa) 4) Widoczny tekst 5) Uszkodzenia, szumy lub artefakty obrazu`

// descriptionSystemPrompt drives the final portrait generation after the
// second full reanalysis round.
const descriptionSystemPrompt = `Twoim zadaniem jest stworzenie szczegółowego rysopisu Barbary na podstawie wszystkich dostępnych informacji. Rysopis powinien być w języku polskim i zawierać wszystkie istotne cechy charakterystyczne, które udało się ustalić na podstawie zdjęć.

Format rysopisu powinien być profesjonalny i zawierać:
1. Ogólny opis sylwetki
2. Szczegóły twarzy i kolor włosów
3. Ubiór i charakterystyczne elementy
4. Wszelkie inne wyróżniające cechy

Skup się tylko na faktach, które można było zaobserwować na zdjęciach.`

// PromptContext carries everything the message-analysis prompt folds in.
type PromptContext struct {
	Message         string
	ProcessedImages []schemas.MediaAnalysis
	CachedAnalyses  []schemas.MediaAnalysis
	History         []schemas.Turn
	Analyses        []schemas.AnalysisEntry
	Attempts        map[string]int
	MaxRetries      int
}

// BuildAnalysisPrompt renders the user message for one round of message
// analysis: the remote message, fresh and cached image analyses, the tail of
// the conversation so far and the action attempt table.
func BuildAnalysisPrompt(pc PromptContext) string {
	var b strings.Builder

	b.WriteString("Przeanalizuj tę wiadomość i zdjęcia:\n\n")
	fmt.Fprintf(&b, "Wiadomość: %s\n", pc.Message)

	b.WriteString("\nNowo przetworzone zdjęcia:\n")
	writeAnalyses(&b, pc.ProcessedImages)

	b.WriteString("\nHistoria przeanalizowanych zdjęć:\n")
	writeAnalyses(&b, pc.CachedAnalyses)

	b.WriteString(historySection(pc.History))
	b.WriteString(analysisSection(pc.Analyses))
	b.WriteString(attemptsSection(pc.Attempts))

	b.WriteString("\nZaproponuj następne kroki:\n")
	b.WriteString("1. Jeśli w wiadomości pojawiły się nowe zdjęcia, zaproponuj odpowiednie polecenia (REPAIR/DARKEN/BRIGHTEN)\n")
	b.WriteString("2. Jeśli nie ma nowych zdjęć, przeanalizuj wszystkie dotychczasowe zdjęcia i oceń, które wymagają poprawy, które są wystarczająco dobre i czy mamy dość informacji do stworzenia rysopisu Barbary\n")
	fmt.Fprintf(&b, "\nWAŻNE: nie proponuj ponownie akcji wykonanych już %d razy dla tego samego pliku. Weź pod uwagę całą historię konwersacji. Jeśli akcja nie przyniosła rezultatu, zaproponuj inną strategię.\n", pc.MaxRetries)

	return b.String()
}

// BuildReanalysisPrompt renders the user message for the first full
// reanalysis round, which reviews everything gathered so far.
func BuildReanalysisPrompt(cached []schemas.MediaAnalysis, attempts map[string]int, maxRetries int) string {
	var b strings.Builder

	b.WriteString("Przeanalizuj wszystkie dotychczas zebrane informacje:\n\n")
	b.WriteString("Historia przeanalizowanych zdjęć:\n")
	writeAnalyses(&b, cached)
	b.WriteString(attemptsSection(attempts))

	b.WriteString("\nNa podstawie powyższych informacji:\n")
	b.WriteString("1. Oceń, które zdjęcia są już wystarczająco dobre\n")
	fmt.Fprintf(&b, "2. Wskaż zdjęcia wymagające jeszcze poprawy, ale tylko jeśli nie przekroczono limitu %d prób\n", maxRetries)
	b.WriteString("3. Oceń, czy zebrane informacje wystarczają do stworzenia rysopisu Barbary\n")

	return b.String()
}

// DescriptionMessages builds the full message list for the final portrait
// request.
func DescriptionMessages(cached []schemas.MediaAnalysis, history []schemas.Turn, attempts map[string]int) []schemas.ChatMessage {
	var b strings.Builder

	b.WriteString("Na podstawie poniższych informacji stwórz rysopis Barbary:\n\n")
	b.WriteString("Historia przeanalizowanych zdjęć:\n")
	writeAnalyses(&b, cached)
	b.WriteString(attemptsSection(attempts))

	b.WriteString("\nHistoria konwersacji:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "[%s] %s: %s\n", turn.Timestamp.Format("2006-01-02 15:04:05"), strings.ToUpper(string(turn.Role)), turn.Content)
	}

	return []schemas.ChatMessage{
		{Role: schemas.ChatSystem, Content: descriptionSystemPrompt},
		{Role: schemas.ChatUser, Content: b.String()},
	}
}

func writeAnalyses(b *strings.Builder, analyses []schemas.MediaAnalysis) {
	if len(analyses) == 0 {
		b.WriteString("(brak)\n")
		return
	}
	for _, a := range analyses {
		fmt.Fprintf(b, "- %s: %s\n", a.FileName, a.Description)
	}
}

func historySection(history []schemas.Turn) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > historyTail {
		history = history[len(history)-historyTail:]
	}
	var b strings.Builder
	b.WriteString("\nHistoria konwersacji:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "[%s] %s: %s\n", turn.Timestamp.Format("2006-01-02 15:04:05"), strings.ToUpper(string(turn.Role)), turn.Content)
	}
	return b.String()
}

func analysisSection(analyses []schemas.AnalysisEntry) string {
	if len(analyses) == 0 {
		return ""
	}
	if len(analyses) > historyTail {
		analyses = analyses[len(analyses)-historyTail:]
	}
	var b strings.Builder
	b.WriteString("\nHistoria analiz:\n")
	for _, entry := range analyses {
		fmt.Fprintf(&b, "[%s] %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Content)
	}
	return b.String()
}

func attemptsSection(attempts map[string]int) string {
	if len(attempts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attempts))
	for k := range attempts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\nWykonane akcje:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s (próby: %d)\n", k, attempts[k])
	}
	return b.String()
}
