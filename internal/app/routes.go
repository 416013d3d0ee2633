package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/felixbrock/cropadvisory/internal/component"
	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/pkg/errors"
)

const (
	pageTitle        = "Smart Crop Advisory"
	authFailedNotice = "Failed. Try again."
	maxUploadBytes   = 10 << 20
)

type AuthRepo interface {
	Authenticate(ctx context.Context, mode domain.AuthMode, creds domain.Credentials) (bool, error)
}

type WeatherRepo interface {
	Read(ctx context.Context, district string) (*domain.WeatherReport, error)
}

type MandiRepo interface {
	Price(ctx context.Context, crop string) (*float64, error)
}

type RecommendationRepo interface {
	Recommend(ctx context.Context, inputs domain.SoilInputs) (string, error)
}

type ChatRepo interface {
	Send(ctx context.Context, chat domain.ChatRequest) (*domain.ChatReply, error)
	Voice(ctx context.Context, q domain.VoiceQuery) (*domain.VoiceReply, error)
}

type HealthRepo interface {
	Check(ctx context.Context) (string, error)
}

func page(body templ.Component) *ComponentResponse {
	return &ComponentResponse{Component: component.Index(pageTitle, body), Code: 200, Message: "OK", ContentType: "text/html"}
}

func errorPage(e errCtx, err error) *ComponentResponse {
	return &ComponentResponse{
		Component:   component.Index(e.Title, component.Error(e.view())),
		Code:        e.Code,
		Message:     e.Title,
		ContentType: "text/html",
		Error:       err,
	}
}

func redirectHome(err error) *ComponentResponse {
	return &ComponentResponse{Redirect: "/", Error: err}
}

// card answers an htmx request with the updated card and a plain form
// post with a redirect back to the dashboard.
func card(r *http.Request, c templ.Component, err error) *ComponentResponse {
	if !isHX(r) {
		return redirectHome(err)
	}
	return &ComponentResponse{Component: c, Code: 200, Message: "OK", ContentType: "text/html", Error: err}
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	return errorPage(get404(), nil)
}

func (a *App) methodNotAllowed(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	return errorPage(get405(), nil)
}

func (a *App) tooManyRequests(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if isHX(r) {
		// htmx does not swap 4xx answers, so the card stays as it was.
		e := get429()
		return &ComponentResponse{Component: component.Error(e.view()), Code: e.Code, Message: e.Title, ContentType: "text/html"}
	}
	return errorPage(get429(), nil)
}

func (a *App) index(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s := a.Sessions.Ensure(w, r)
	st := s.Render()

	if !st.Authenticated {
		return page(component.Auth(authView(st)))
	}
	return page(component.Dashboard(dashboardView(st)))
}

// authedSession returns the caller's session when it has signed in.
func (a *App) authedSession(r *http.Request) (*Session, bool) {
	s, ok := a.Sessions.Get(r)
	if !ok {
		return nil, false
	}
	return s, s.Snapshot().Authenticated
}

func (a *App) authenticate(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s := a.Sessions.Ensure(w, r)

	if err := r.ParseForm(); err != nil {
		return errorPage(get400(), err)
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	lang, langErr := domain.ParseLanguage(r.PostForm.Get("lang"))

	var (
		mode          domain.AuthMode
		prefLang      domain.Language
		authenticated bool
	)
	s.Update(func(st *State) {
		st.AuthUsername = username
		if langErr == nil {
			st.Lang = lang
		}
		mode, prefLang, authenticated = st.AuthMode, st.Lang, st.Authenticated
	})

	if authenticated {
		return redirectHome(nil)
	}

	ok, err := a.AuthRepo.Authenticate(r.Context(), mode, domain.Credentials{
		Username: username,
		Password: password,
		PrefLang: prefLang,
	})

	s.Update(func(st *State) {
		if err == nil && ok {
			st.Authenticated = true
			st.Username = username
			return
		}
		st.Notice = authFailedNotice
	})

	return redirectHome(err)
}

func (a *App) toggleAuthMode(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s := a.Sessions.Ensure(w, r)

	if err := r.ParseForm(); err != nil {
		return errorPage(get400(), err)
	}

	s.Update(func(st *State) {
		if username, ok := r.PostForm["username"]; ok {
			st.AuthUsername = username[0]
		}
		if lang, err := domain.ParseLanguage(r.PostForm.Get("lang")); err == nil {
			st.Lang = lang
		}
		st.AuthMode = st.AuthMode.Toggle()
	})

	return card(r, component.AuthModeSwitch(authView(s.Snapshot())), nil)
}

func (a *App) setLanguage(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s, ok := a.authedSession(r)
	if !ok {
		return redirectHome(nil)
	}

	lang, err := domain.ParseLanguage(r.PostFormValue("lang"))
	if err != nil {
		return errorPage(get400(), err)
	}

	s.Update(func(st *State) { st.Lang = lang })
	return redirectHome(nil)
}

func (a *App) fetchWeather(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s, ok := a.authedSession(r)
	if !ok {
		return redirectHome(nil)
	}

	district := r.PostFormValue("district")
	if !domain.IsDistrict(district) {
		s.Update(func(st *State) { st.WeatherErr = fmt.Sprintf("Unknown district %q.", district) })
		return card(r, component.WeatherCard(weatherView(s.Snapshot())), nil)
	}

	s.Update(func(st *State) { st.District = district })

	report, err := a.WeatherRepo.Read(r.Context(), district)

	s.Update(func(st *State) {
		if err != nil {
			st.WeatherErr = "Could not fetch the weather. Try again."
			return
		}
		st.Weather = report
		st.WeatherErr = ""
	})

	return card(r, component.WeatherCard(weatherView(s.Snapshot())), err)
}

func (a *App) fetchMandiPrice(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s, ok := a.authedSession(r)
	if !ok {
		return redirectHome(nil)
	}

	crop := r.PostFormValue("crop")
	if !domain.IsCrop(crop) {
		s.Update(func(st *State) { st.MandiErr = fmt.Sprintf("Unknown crop %q.", crop) })
		return card(r, component.MandiCard(mandiView(s.Snapshot())), nil)
	}

	s.Update(func(st *State) { st.Crop = crop })

	price, err := a.MandiRepo.Price(r.Context(), crop)

	s.Update(func(st *State) {
		if err != nil {
			st.MandiErr = "Could not fetch the mandi price. Try again."
			return
		}
		st.MandiPrice = price
		st.MandiErr = ""
	})

	return card(r, component.MandiCard(mandiView(s.Snapshot())), err)
}

// parseSoilInputs reads the seven recommendation fields. Every field must
// be a finite number.
func parseSoilInputs(r *http.Request) (domain.SoilInputs, error) {
	var inputs domain.SoilInputs
	for _, name := range domain.SoilFieldNames {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue(name)), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return inputs, fmt.Errorf("%s must be a number", name)
		}
		if err = inputs.Set(name, v); err != nil {
			return inputs, err
		}
	}
	return inputs, nil
}

// selections are the dashboard choices posted along with a chat or voice
// query. Fields missing from the form keep the session's values.
type selections struct {
	District string
	Crop     string
	Inputs   domain.SoilInputs
}

func parseSelections(r *http.Request, st State) (selections, error) {
	sel := selections{District: st.District, Crop: st.Crop, Inputs: st.Inputs}

	if _, ok := r.PostForm["district"]; ok {
		district := r.PostForm.Get("district")
		if !domain.IsDistrict(district) {
			return sel, errors.Errorf("unknown district %q", district)
		}
		sel.District = district
	}

	if _, ok := r.PostForm["crop"]; ok {
		crop := r.PostForm.Get("crop")
		if !domain.IsCrop(crop) {
			return sel, errors.Errorf("unknown crop %q", crop)
		}
		sel.Crop = crop
	}

	for _, name := range domain.SoilFieldNames {
		if _, ok := r.PostForm[name]; ok {
			inputs, err := parseSoilInputs(r)
			if err != nil {
				return sel, err
			}
			sel.Inputs = inputs
			break
		}
	}

	return sel, nil
}

func (sel selections) apply(st *State) {
	st.District = sel.District
	st.Crop = sel.Crop
	st.Inputs = sel.Inputs
}

func (a *App) fetchRecommendation(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s, ok := a.authedSession(r)
	if !ok {
		return redirectHome(nil)
	}

	inputs, err := parseSoilInputs(r)
	if err != nil {
		s.Update(func(st *State) { st.RecommendErr = err.Error() + "." })
		return card(r, component.RecommendCard(recommendView(s.Snapshot())), nil)
	}

	s.Update(func(st *State) { st.Inputs = inputs })

	crop, err := a.RecommendationRepo.Recommend(r.Context(), inputs)

	s.Update(func(st *State) {
		if err != nil {
			st.RecommendErr = "Could not get a recommendation. Try again."
			return
		}
		st.RecommendedCrop = crop
		st.RecommendErr = ""
	})

	return card(r, component.RecommendCard(recommendView(s.Snapshot())), err)
}

func (a *App) sendChatMessage(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s, ok := a.authedSession(r)
	if !ok {
		return redirectHome(nil)
	}

	if err := r.ParseForm(); err != nil {
		return errorPage(get400(), err)
	}

	query := r.PostForm.Get("query")

	sel, err := parseSelections(r, s.Snapshot())
	if err != nil {
		s.Update(func(st *State) {
			st.ChatQuery = query
			st.ChatErr = "Check the dashboard inputs: " + err.Error() + "."
		})
		return card(r, component.ChatCard(chatView(s.Snapshot())), nil)
	}

	var chat domain.ChatRequest
	s.Update(func(st *State) {
		sel.apply(st)
		st.ChatQuery = query
		chat = domain.ChatRequest{
			Query:      query,
			District:   st.District,
			Crop:       st.Crop,
			SoilInputs: st.Inputs,
			Lang:       st.Lang,
		}
	})

	reply, err := a.ChatRepo.Send(r.Context(), chat)

	s.Update(func(st *State) {
		if err != nil {
			st.ChatErr = "The advisor could not be reached. Try again."
			return
		}
		st.ChatReply = reply.Reply
		if reply.AudioURL != nil && *reply.AudioURL != "" {
			st.ChatAudioURL = a.audioURL(*reply.AudioURL)
		}
		st.ChatErr = ""
	})

	return card(r, component.ChatCard(chatView(s.Snapshot())), err)
}

func (a *App) sendVoiceQuery(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	s, ok := a.authedSession(r)
	if !ok {
		return redirectHome(nil)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	audio, filename, err := readUpload(r)
	if err != nil {
		s.Update(func(st *State) { st.VoiceErr = "Choose an audio recording to send." })
		return card(r, component.VoiceCard(voiceView(s.Snapshot())), err)
	}

	sel, err := parseSelections(r, s.Snapshot())
	if err != nil {
		s.Update(func(st *State) { st.VoiceErr = "Check the dashboard inputs: " + err.Error() + "." })
		return card(r, component.VoiceCard(voiceView(s.Snapshot())), nil)
	}

	var q domain.VoiceQuery
	s.Update(func(st *State) {
		sel.apply(st)
		q = domain.VoiceQuery{
			Filename: filename,
			Audio:    audio,
			District: st.District,
			Crop:     st.Crop,
			Lang:     st.Lang,
		}
	})

	reply, err := a.ChatRepo.Voice(r.Context(), q)

	s.Update(func(st *State) {
		if err != nil {
			st.VoiceErr = "The advisor could not be reached. Try again."
			return
		}
		st.VoiceQueryText = reply.QueryText
		st.VoiceReplyText = reply.ReplyText
		if reply.AudioURL != nil && *reply.AudioURL != "" {
			st.VoiceAudioURL = a.audioURL(*reply.AudioURL)
		}
		st.VoiceErr = ""
	})

	return card(r, component.VoiceCard(voiceView(s.Snapshot())), err)
}

func readUpload(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", errors.Wrap(err, "parse voice upload")
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.Wrap(err, "voice upload file")
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrap(err, "read voice upload")
	}
	if len(audio) == 0 {
		return nil, "", errors.New("empty voice upload")
	}

	return audio, hdr.Filename, nil
}

func authView(st State) component.AuthView {
	return component.AuthView{
		Mode:     st.AuthMode,
		Username: st.AuthUsername,
		Lang:     st.Lang,
		Notice:   st.Notice,
	}
}

func weatherView(st State) component.WeatherView {
	return component.WeatherView{District: st.District, Report: st.Weather, Err: st.WeatherErr}
}

func mandiView(st State) component.MandiView {
	return component.MandiView{Crop: st.Crop, Price: st.MandiPrice, Err: st.MandiErr}
}

func recommendView(st State) component.RecommendView {
	return component.RecommendView{Inputs: st.Inputs, Crop: st.RecommendedCrop, Err: st.RecommendErr}
}

func chatView(st State) component.ChatView {
	return component.ChatView{Query: st.ChatQuery, Reply: st.ChatReply, AudioURL: st.ChatAudioURL, Err: st.ChatErr}
}

func voiceView(st State) component.VoiceView {
	return component.VoiceView{
		QueryText: st.VoiceQueryText,
		ReplyText: st.VoiceReplyText,
		AudioURL:  st.VoiceAudioURL,
		Err:       st.VoiceErr,
	}
}

func dashboardView(st State) component.DashboardView {
	return component.DashboardView{
		Username:  st.Username,
		Lang:      st.Lang,
		Weather:   weatherView(st),
		Mandi:     mandiView(st),
		Recommend: recommendView(st),
		Chat:      chatView(st),
		Voice:     voiceView(st),
	}
}
