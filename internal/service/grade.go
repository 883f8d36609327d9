package service

import "math"

type Grade int

const (
	GradeUnsatisfactory Grade = iota
	GradeAverage
	GradeSatisfactory
	GradeGood
	GradeExcellent
)

const (
	gradeExcellentMin    = 90
	gradeGoodMin         = 80
	gradeSatisfactoryMin = 70
	gradeAverageMin      = 60

	// MinSharePercentage is the lowest percentage for which the report
	// offers to share the result.
	MinSharePercentage = 70
)

// Percentage is correct/total*100 rounded to one decimal place, or 0 for
// an empty quiz.
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

// GradeFor maps a percentage to its grade band.
func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= gradeExcellentMin:
		return GradeExcellent
	case percentage >= gradeGoodMin:
		return GradeGood
	case percentage >= gradeSatisfactoryMin:
		return GradeSatisfactory
	case percentage >= gradeAverageMin:
		return GradeAverage
	default:
		return GradeUnsatisfactory
	}
}

func (g Grade) String() string {
	switch g {
	case GradeExcellent:
		return "excellent"
	case GradeGood:
		return "good"
	case GradeSatisfactory:
		return "satisfactory"
	case GradeAverage:
		return "average"
	default:
		return "unsatisfactory"
	}
}

func (g Grade) Label() string {
	switch g {
	case GradeExcellent:
		return "Excellent!"
	case GradeGood:
		return "Good!"
	case GradeSatisfactory:
		return "Satisfactory!"
	case GradeAverage:
		return "Average!"
	default:
		return "Unsatisfactory!"
	}
}

func (g Grade) Emoji() string {
	switch g {
	case GradeExcellent:
		return "🏆"
	case GradeGood:
		return "🥇"
	case GradeSatisfactory:
		return "🥈"
	case GradeAverage:
		return "🥉"
	default:
		return "📚"
	}
}

func (g Grade) Congratulation() string {
	switch g {
	case GradeExcellent:
		return "🎊 Outstanding result! You really know your stuff!"
	case GradeGood:
		return "👏 Good result! A bit more practice and it will be excellent!"
	case GradeSatisfactory:
		return "💪 Nice effort! Keep going!"
	case GradeAverage:
		return "📖 A good start! More reading is needed!"
	default:
		return "💡 Put in more effort to improve your knowledge!"
	}
}
