package quiz

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

var answerLetters = []string{"A", "B", "C", "D"}

var (
	thinSeparator  = strings.Repeat("➖", 12)
	thickSeparator = strings.Repeat("━", 20)
	reportRule     = strings.Repeat("▬", 18)
)

const defaultDisplayName = "Participant"

func backButtons() [][]Button {
	return [][]Button{{
		{Text: "↩️ Back", Data: CategoriesAction},
		{Text: "🏠 Main menu", Data: MainMenuAction},
	}}
}

func categoriesView(categories []service.Category) View {
	if len(categories) == 0 {
		return View{
			Text: "📂 <b>There are no quiz categories yet.</b>\n" +
				"📥 Questions will be added soon\n\n" +
				"🙏 <i>Please try again later</i>",
			Buttons: [][]Button{{{Text: "🏠 Main menu", Data: MainMenuAction}}},
		}
	}

	rows := make([][]Button, 0, len(categories)+1)
	for _, category := range categories {
		rows = append(rows, []Button{{
			Text: "📚 " + category.Name,
			Data: CategoryData(category.ID),
		}})
	}
	rows = append(rows, []Button{{Text: "🏠 Main menu", Data: MainMenuAction}})

	return View{
		Text:    "🧠 <b>QUIZ</b>\n" + thinSeparator + "\n\n👇 <b>Choose a category:</b>",
		Buttons: rows,
	}
}

func emptyCategoryView() View {
	return View{
		Text:    "❌ <b>There are no questions in this category</b>",
		Buttons: backButtons(),
	}
}

func errorView() View {
	return View{
		Text:    "❌ <b>Something went wrong</b>\n\n🔄 Please try again.",
		Buttons: backButtons(),
	}
}

func startingView(total int, limit time.Duration) View {
	return View{
		Text: fmt.Sprintf("🎯 <b>The quiz is starting!</b>\n\n"+
			"🔢 Questions: <b>%d</b>\n"+
			"⏱ Time per question: <b>%d seconds</b>\n\n"+
			"💡 <i>Get ready...</i>", total, seconds(limit)),
	}
}

func seconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}

func questionHeader(question service.Question, number, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>📝 Question %d/%d</b>\n%s\n", number, total, thinSeparator)
	fmt.Fprintf(&b, "<b>%s</b>\n%s\n", html.EscapeString(question.Text), thickSeparator)
	return b.String()
}

// optionLines lists options with their letters; mark decides the prefix
// of every option.
func optionLines(options []service.AnswerOption, mark func(service.AnswerOption) string) string {
	var b strings.Builder
	b.WriteString("📝 <b>Answer options:</b>\n\n")
	for i, option := range options {
		if i >= len(answerLetters) {
			break
		}
		prefix := ""
		if mark != nil {
			prefix = mark(option)
		}
		if prefix != "" {
			prefix += " "
		}
		fmt.Fprintf(&b, "%s<b>%s)</b> %s\n", prefix, answerLetters[i], html.EscapeString(option.Text))
	}
	return b.String()
}

func questionView(question service.Question, options []service.AnswerOption, number, total int, remaining time.Duration) View {
	text := questionHeader(question, number, total) +
		optionLines(options, nil) +
		fmt.Sprintf("\n⏳ <i>Time left: <b>%d</b> seconds</i>", seconds(remaining))

	letters := make([]Button, 0, len(answerLetters))
	for i, option := range options {
		if i >= len(answerLetters) {
			break
		}
		letters = append(letters, Button{
			Text: answerLetters[i],
			Data: AnswerData(question.ID, option.ID),
		})
	}

	return View{
		Text:  text,
		Media: question.Media,
		Buttons: [][]Button{
			letters,
			{{Text: "🚪 Exit quiz", Data: CategoriesAction}},
		},
	}
}

// revealMarker is ✅ on the correct option, ❌ on a wrong selection and
// empty otherwise. selectedID 0 means nothing was selected.
func revealMarker(option service.AnswerOption, selectedID int64) string {
	switch {
	case option.IsCorrect:
		return "✅"
	case selectedID != 0 && option.ID == selectedID:
		return "❌"
	default:
		return ""
	}
}

func revealButtons(options []service.AnswerOption, selectedID int64) [][]Button {
	row := make([]Button, 0, len(answerLetters))
	for i, option := range options {
		if i >= len(answerLetters) {
			break
		}
		text := answerLetters[i]
		if marker := revealMarker(option, selectedID); marker != "" {
			text = marker + " " + text
		}
		row = append(row, Button{Text: text, Data: NoopAction})
	}
	return [][]Button{row}
}

func answerRevealView(question service.Question, options []service.AnswerOption, selected service.AnswerOption, number, total int) View {
	result := "❌ <b>Wrong answer!</b>\n\n"
	if selected.IsCorrect {
		result = "✅ <b>Correct answer!</b>\n\n"
	}

	mark := func(option service.AnswerOption) string { return revealMarker(option, selected.ID) }
	return View{
		Text:    questionHeader(question, number, total) + result + optionLines(options, mark),
		Media:   question.Media,
		Buttons: revealButtons(options, selected.ID),
	}
}

func timeoutRevealView(question service.Question, options []service.AnswerOption, number, total int) View {
	mark := func(option service.AnswerOption) string { return revealMarker(option, 0) }
	return View{
		Text:    questionHeader(question, number, total) + "⏰ <b>Time is up!</b>\n\n" + optionLines(options, mark),
		Media:   question.Media,
		Buttons: revealButtons(options, 0),
	}
}

func continueButtons() [][]Button {
	return [][]Button{{{Text: "👉 Next question", Data: ContinueAction}}}
}

func formatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}

func reportView(r Report) View {
	var b strings.Builder
	b.WriteString("🏁 <b>QUIZ FINISHED!</b>\n")
	b.WriteString(reportRule + "\n\n")
	fmt.Fprintf(&b, "👤 <b>Participant: %s</b>\n\n", html.EscapeString(r.Name))
	fmt.Fprintf(&b, "📊 <b>Result:</b> %d/%d\n\n", r.Correct, r.Total)
	fmt.Fprintf(&b, "📈 <b>Percentage:</b> <i>%s%%</i>\n\n", formatPercentage(r.Percentage))
	fmt.Fprintf(&b, "%s <b>Grade: %s</b>\n\n", r.Grade.Emoji(), r.Grade.Label())
	fmt.Fprintf(&b, "✅ Correct answers: %d\n\n", r.Correct)
	fmt.Fprintf(&b, "❌ Incorrect answers: %d\n\n", r.Total-r.Correct)
	b.WriteString(reportRule + "\n\n")
	b.WriteString(r.Grade.Congratulation())
	if r.NewBest && r.Position > 0 {
		fmt.Fprintf(&b, "\n\n🎉 <b>New record!</b> You are #%d on the leaderboard!", r.Position)
	}

	var rows [][]Button
	if r.Shareable {
		rows = append(rows, []Button{{
			Text: "📤 Share result",
			Share: fmt.Sprintf("📢 I passed the quiz:\n✅ Result: %d/%d\n📈 Percentage: %s%%\n\n"+
				"🎯 Check your knowledge too:", r.Correct, r.Total, formatPercentage(r.Percentage)),
		}})
	}
	rows = append(rows,
		[]Button{{Text: "🔄 Take another quiz", Data: CategoriesAction}},
		[]Button{{Text: "🏠 Main menu", Data: MainMenuAction}},
	)

	return View{Text: b.String(), Buttons: rows}
}
