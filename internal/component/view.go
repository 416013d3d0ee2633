package component

import (
	"github.com/felixbrock/cropadvisory/internal/domain"
)

type AuthView struct {
	Mode     domain.AuthMode
	Username string
	Lang     domain.Language
	// Notice is shown as a blocking dialog when set.
	Notice string
}

type WeatherView struct {
	District string
	Report   *domain.WeatherReport
	Err      string
}

type MandiView struct {
	Crop  string
	Price *float64
	Err   string
}

type RecommendView struct {
	Inputs domain.SoilInputs
	Crop   string
	Err    string
}

type ChatView struct {
	Query    string
	Reply    string
	AudioURL string
	Err      string
}

type VoiceView struct {
	QueryText string
	ReplyText string
	AudioURL  string
	Err       string
}

type DashboardView struct {
	Username  string
	Lang      domain.Language
	Weather   WeatherView
	Mandi     MandiView
	Recommend RecommendView
	Chat      ChatView
	Voice     VoiceView
}

type ErrorView struct {
	Code  int
	Title string
	Msg   string
}

func (v WeatherView) hasReading() bool {
	return v.Report != nil && v.Report.Latest != nil
}

// A zero price means the backend had no quote.
func (v MandiView) hasPrice() bool {
	return v.Price != nil && *v.Price != 0
}
