package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testApiBase = "http://127.0.0.1:8000"

var errBackendDown = errors.New("connection refused")

type fakeBackend struct {
	mu sync.Mutex

	authOK     bool
	authErr    error
	authModes  []domain.AuthMode
	authCreds  []domain.Credentials
	weather    *domain.WeatherReport
	weatherErr error
	districts  []string
	price      *float64
	priceErr   error
	crops      []string
	crop       string
	recInputs  []domain.SoilInputs
	chatReply  *domain.ChatReply
	chatErr    error
	chats      []domain.ChatRequest
	voiceReply *domain.VoiceReply
	voices     []domain.VoiceQuery
	healthErr  error
}

func (f *fakeBackend) Authenticate(ctx context.Context, mode domain.AuthMode, creds domain.Credentials) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authModes = append(f.authModes, mode)
	f.authCreds = append(f.authCreds, creds)
	return f.authOK, f.authErr
}

func (f *fakeBackend) Read(ctx context.Context, district string) (*domain.WeatherReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.districts = append(f.districts, district)
	return f.weather, f.weatherErr
}

func (f *fakeBackend) Price(ctx context.Context, crop string) (*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crops = append(f.crops, crop)
	return f.price, f.priceErr
}

func (f *fakeBackend) Recommend(ctx context.Context, inputs domain.SoilInputs) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recInputs = append(f.recInputs, inputs)
	return f.crop, nil
}

func (f *fakeBackend) Send(ctx context.Context, chat domain.ChatRequest) (*domain.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chat)
	return f.chatReply, f.chatErr
}

func (f *fakeBackend) Voice(ctx context.Context, q domain.VoiceQuery) (*domain.VoiceReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = append(f.voices, q)
	return f.voiceReply, nil
}

func (f *fakeBackend) Check(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.healthErr != nil {
		return "", f.healthErr
	}
	return "ok", nil
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) get(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func newTestApp(fake *fakeBackend) *App {
	return &App{
		AuthRepo:           fake,
		WeatherRepo:        fake,
		MandiRepo:          fake,
		RecommendationRepo: fake,
		ChatRepo:           fake,
		HealthRepo:         fake,
		Sessions:           NewSessionStore(time.Hour, DefaultState(domain.LanguageEnglish)),
		Config:             Config{ApiBase: testApiBase, State: domain.DefaultState},
	}
}

type browser struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newBrowser(t *testing.T, a *App) *browser {
	t.Helper()

	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &browser{t: t, srv: srv, client: &http.Client{Jar: jar}}
}

func (b *browser) doc(resp *http.Response) *goquery.Document {
	b.t.Helper()
	defer resp.Body.Close()

	d, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(b.t, err)
	return d
}

func (b *browser) get(path string) *goquery.Document {
	b.t.Helper()

	resp, err := b.client.Get(b.srv.URL + path)
	require.NoError(b.t, err)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	return b.doc(resp)
}

// post submits a form like a browser without htmx: the answer is followed
// through the redirect back to the dashboard.
func (b *browser) post(path string, form url.Values) *goquery.Document {
	b.t.Helper()

	resp, err := b.client.PostForm(b.srv.URL+path, form)
	require.NoError(b.t, err)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	return b.doc(resp)
}

func (b *browser) hxPost(path string, form url.Values) (*http.Response, *goquery.Document) {
	b.t.Helper()

	req, err := http.NewRequest("POST", b.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	return resp, b.doc(resp)
}

func (b *browser) login(username string) *goquery.Document {
	b.t.Helper()
	return b.post("/auth", url.Values{"username": {username}, "password": {"pw"}, "lang": {"en"}})
}

func authedFake() *fakeBackend {
	return &fakeBackend{authOK: true}
}

func TestAuthScreenByDefault(t *testing.T) {
	b := newBrowser(t, newTestApp(authedFake()))

	d := b.get("/")
	assert.Equal(t, "🌾 Smart Crop Advisory", d.Find("h1.title").Text())
	assert.Equal(t, "Login", d.Find("#auth-card h2").Text())
	assert.Equal(t, "Login", d.Find("#auth-submit").Text())
	assert.Equal(t, "Signup", d.Find("#auth-toggle").Text())
	assert.Equal(t, 0, d.Find("dialog.notice").Length())
}

func TestAuthSuccessShowsDashboard(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))

	d := b.login("gurpreet")
	assert.Equal(t, "🌾 Welcome, gurpreet", d.Find("h1.title").Text())
	assert.Equal(t, 1, d.Find("#weather-card").Length())
	assert.Equal(t, 0, d.Find("#auth-card").Length())

	fake.get(func(f *fakeBackend) {
		require.Len(t, f.authModes, 1)
		assert.Equal(t, domain.AuthModeLogin, f.authModes[0])
		assert.Equal(t, domain.Credentials{Username: "gurpreet", Password: "pw", PrefLang: "en"}, f.authCreds[0])
	})

	// No transition back to the auth screen.
	d = b.get("/")
	assert.Equal(t, "🌾 Welcome, gurpreet", d.Find("h1.title").Text())
}

func TestAuthFailureShowsNotice(t *testing.T) {
	for name, fake := range map[string]*fakeBackend{
		"rejected":    {authOK: false},
		"unreachable": {authErr: errBackendDown},
	} {
		t.Run(name, func(t *testing.T) {
			b := newBrowser(t, newTestApp(fake))

			d := b.login("gurpreet")
			assert.Equal(t, "Failed. Try again.", d.Find("dialog.notice p").Text())
			assert.Equal(t, 1, d.Find("#auth-card").Length())
			assert.Equal(t, 0, d.Find("#weather-card").Length())

			d = b.get("/")
			assert.Equal(t, 0, d.Find("dialog.notice").Length())
			assert.Equal(t, 1, d.Find("#auth-card").Length())
		})
	}
}

func TestToggleAuthModeKeepsFields(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))

	d := b.post("/auth/mode", url.Values{"username": {"jaspreet"}, "password": {"pw"}, "lang": {"pa"}})
	assert.Equal(t, "Signup", d.Find("#auth-card h2").Text())
	assert.Equal(t, "Signup", d.Find("#auth-submit").Text())
	assert.Equal(t, "Login", d.Find("#auth-toggle").Text())
	assert.Equal(t, "jaspreet", d.Find("input[name=username]").AttrOr("value", ""))
	assert.Equal(t, "pa", d.Find("select[name=lang] option[selected]").AttrOr("value", ""))

	d = b.post("/auth/mode", url.Values{"username": {"jaspreet"}})
	assert.Equal(t, "Login", d.Find("#auth-submit").Text())

	d = b.post("/auth/mode", url.Values{"username": {"jaspreet"}})
	assert.Equal(t, "Signup", d.Find("#auth-submit").Text())

	b.post("/auth", url.Values{"username": {"jaspreet"}, "password": {"pw"}, "lang": {"pa"}})

	fake.get(func(f *fakeBackend) {
		require.Len(t, f.authModes, 1)
		assert.Equal(t, domain.AuthModeSignup, f.authModes[0])
		assert.Equal(t, domain.LanguagePunjabi, f.authCreds[0].PrefLang)
	})
}

func TestWeather(t *testing.T) {
	fake := authedFake()
	fake.weather = &domain.WeatherReport{
		Latest: &domain.WeatherReading{Date: "20240612", Temperature: 31.2, Humidity: 40, Rainfall: 0},
		Forecast: []domain.WeatherReading{
			{Date: "20240611", Temperature: 30.1, Humidity: 42, Rainfall: 1.5},
			{Date: "20240612", Temperature: 31.2, Humidity: 40, Rainfall: 0},
		},
	}
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	d := b.post("/weather", url.Values{"district": {"Amritsar"}})

	assert.Equal(t, "☁️ Weather in Amritsar", d.Find("#weather-card h2").Text())
	assert.Equal(t, "🌡 31.2°C | 💧 40% | 🌧 0 mm", d.Find("#weather-card p.reading").Text())
	assert.Equal(t, 3, d.Find("#weather-card table.forecast tr").Length())
	assert.Equal(t, "Amritsar", d.Find("select[name=district] option[selected]").AttrOr("value", ""))

	fake.get(func(f *fakeBackend) {
		assert.Equal(t, []string{"Amritsar"}, f.districts)
	})
}

func TestWeatherFailureKeepsLastReading(t *testing.T) {
	fake := authedFake()
	fake.weather = &domain.WeatherReport{Latest: &domain.WeatherReading{Temperature: 25, Humidity: 70, Rainfall: 100}}
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	b.post("/weather", url.Values{"district": {"Patiala"}})

	fake.set(func(f *fakeBackend) {
		f.weather = nil
		f.weatherErr = errBackendDown
	})

	d := b.post("/weather", url.Values{"district": {"Bathinda"}})
	assert.Equal(t, "🌡 25°C | 💧 70% | 🌧 100 mm", d.Find("#weather-card p.reading").Text())
	assert.Equal(t, "Could not fetch the weather. Try again.", d.Find("#weather-card p.error").Text())
}

func TestWeatherUnknownDistrict(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	d := b.post("/weather", url.Values{"district": {"Delhi"}})
	assert.Contains(t, d.Find("#weather-card p.error").Text(), "Unknown district")

	fake.get(func(f *fakeBackend) { assert.Empty(t, f.districts) })
}

func TestMandiPrice(t *testing.T) {
	price := 1900.0
	fake := authedFake()
	fake.price = &price
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	d := b.post("/mandi-price", url.Values{"crop": {"Rice"}})
	assert.Equal(t, "Current Price: ₹1900 per quintal", d.Find("#mandi-card p.price").Text())
	assert.Equal(t, "Rice", d.Find("select[name=crop] option[selected]").AttrOr("value", ""))

	fake.get(func(f *fakeBackend) { assert.Equal(t, []string{"Rice"}, f.crops) })
}

func TestMandiPriceMissingShowsNothing(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	d := b.post("/mandi-price", url.Values{"crop": {"Cotton"}})
	assert.Equal(t, 0, d.Find("#mandi-card p.price").Length())
	assert.Equal(t, 0, d.Find("#mandi-card p.error").Length())
}

func soilForm(inputs map[string]string) url.Values {
	form := url.Values{}
	for k, v := range inputs {
		form.Set(k, v)
	}
	return form
}

func TestRecommendation(t *testing.T) {
	fake := authedFake()
	fake.crop = "Pulses"
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	d := b.post("/recommend-crop", soilForm(map[string]string{
		"N": "50", "P": "50", "K": "50", "temp": "28", "humidity": "60", "ph": "6.5", "rainfall": "100"}))

	assert.Equal(t, "Recommended Crop: 🌾 Pulses", d.Find("#recommend-card p.recommendation").Text())
	assert.Equal(t, "6.5", d.Find("#recommend-card input[name=ph]").AttrOr("value", ""))

	fake.get(func(f *fakeBackend) {
		require.Len(t, f.recInputs, 1)
		assert.Equal(t, domain.SoilInputs{N: 50, P: 50, K: 50, Temp: 28, Humidity: 60, Ph: 6.5, Rainfall: 100}, f.recInputs[0])
	})
}

func TestRecommendationRejectsNonNumbers(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	d := b.post("/recommend-crop", soilForm(map[string]string{
		"N": "50", "P": "fifty", "K": "50", "temp": "28", "humidity": "60", "ph": "6.5", "rainfall": "100"}))

	assert.Equal(t, "P must be a number.", d.Find("#recommend-card p.error").Text())
	assert.Equal(t, "50", d.Find("#recommend-card input[name=P]").AttrOr("value", ""))
	fake.get(func(f *fakeBackend) { assert.Empty(t, f.recInputs) })
}

func TestChatAudioLink(t *testing.T) {
	audio := "/audio/1.mp3"
	fake := authedFake()
	fake.chatReply = &domain.ChatReply{Reply: "Soil moisture OK. Irrigate every 7–10 days.", AudioURL: &audio}
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")
	b.post("/mandi-price", url.Values{"crop": {"Maize"}})

	d := b.post("/chatbot", url.Values{"query": {"when should I irrigate?"}})

	assert.Equal(t, "Advisor: Soil moisture OK. Irrigate every 7–10 days.", d.Find("#chat-card p.reply").Text())
	assert.Equal(t, testApiBase+"/audio/1.mp3", d.Find("#chat-card audio").AttrOr("src", ""))
	assert.Equal(t, "when should I irrigate?", d.Find("#chat-card input[name=query]").AttrOr("value", ""))

	fake.get(func(f *fakeBackend) {
		require.Len(t, f.chats, 1)
		assert.Equal(t, domain.ChatRequest{
			Query:      "when should I irrigate?",
			District:   domain.DefaultDistrict,
			Crop:       "Maize",
			SoilInputs: domain.DefaultSoilInputs(),
			Lang:       domain.LanguageEnglish,
		}, f.chats[0])
	})

	// A reply without audio keeps the previous link.
	fake.set(func(f *fakeBackend) { f.chatReply = &domain.ChatReply{Reply: "I’m still learning."} })
	d = b.post("/chatbot", url.Values{"query": {"hello"}})
	assert.Equal(t, "Advisor: I’m still learning.", d.Find("#chat-card p.reply").Text())
	assert.Equal(t, testApiBase+"/audio/1.mp3", d.Find("#chat-card audio").AttrOr("src", ""))
}

func TestChatFollowsLanguage(t *testing.T) {
	fake := authedFake()
	fake.chatReply = &domain.ChatReply{Reply: "ਠੀਕ ਹੈ"}
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	d := b.post("/lang", url.Values{"lang": {"pa"}})
	assert.Equal(t, "pa", d.Find("form.lang option[selected]").AttrOr("value", ""))

	b.post("/chatbot", url.Values{"query": {"ਮੌਸਮ"}})
	fake.get(func(f *fakeBackend) {
		require.Len(t, f.chats, 1)
		assert.Equal(t, domain.LanguagePunjabi, f.chats[0].Lang)
	})
}

func TestChatSendsLiveSelections(t *testing.T) {
	fake := authedFake()
	fake.chatReply = &domain.ChatReply{Reply: "Irrigate lightly."}
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	_, d := b.hxPost("/chatbot", url.Values{
		"query":    {"should I irrigate?"},
		"district": {"Amritsar"},
		"crop":     {"Rice"},
		"N":        {"90"},
		"P":        {"40"},
		"K":        {"35"},
		"temp":     {"31"},
		"humidity": {"75"},
		"ph":       {"6.8"},
		"rainfall": {"210"},
	})
	assert.Equal(t, "Advisor: Irrigate lightly.", d.Find("p.reply").Text())

	fake.get(func(f *fakeBackend) {
		require.Len(t, f.chats, 1)
		assert.Equal(t, "Amritsar", f.chats[0].District)
		assert.Equal(t, "Rice", f.chats[0].Crop)
		assert.Equal(t, domain.SoilInputs{N: 90, P: 40, K: 35, Temp: 31, Humidity: 75, Ph: 6.8, Rainfall: 210}, f.chats[0].SoilInputs)
	})

	// The dashboard now shows the selections the chat was sent with.
	d = b.get("/")
	assert.Equal(t, "Amritsar", d.Find("select[name=district] option[selected]").AttrOr("value", ""))
	assert.Equal(t, "Rice", d.Find("select[name=crop] option[selected]").AttrOr("value", ""))
	assert.Equal(t, "90", d.Find("#recommend-card input[name=N]").AttrOr("value", ""))
}

func TestChatRejectsBadSelections(t *testing.T) {
	for name, form := range map[string]url.Values{
		"district": {"query": {"hi"}, "district": {"Delhi"}},
		"crop":     {"query": {"hi"}, "crop": {"Barley"}},
		"inputs":   {"query": {"hi"}, "N": {"lots"}},
	} {
		t.Run(name, func(t *testing.T) {
			fake := authedFake()
			b := newBrowser(t, newTestApp(fake))
			b.login("gurpreet")

			_, d := b.hxPost("/chatbot", form)
			assert.Contains(t, d.Find("p.error").Text(), "Check the dashboard inputs")
			assert.Equal(t, "hi", d.Find("input[name=query]").AttrOr("value", ""))

			fake.get(func(f *fakeBackend) { assert.Empty(t, f.chats) })
		})
	}
}

func TestToggleAuthModeHXKeepsTypedFields(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))
	b.get("/")

	resp, d := b.hxPost("/auth/mode", url.Values{"username": {"jaspreet"}, "password": {"pw"}, "lang": {"en"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Only the mode dependent parts come back, the inputs stay in the page.
	assert.Equal(t, 0, d.Find("input").Length())
	assert.Equal(t, "Signup", d.Find("#auth-actions #auth-submit").Text())
	assert.Equal(t, "Login", d.Find("#auth-actions #auth-toggle").Text())
	assert.Equal(t, "true", d.Find("h2#auth-title").AttrOr("hx-swap-oob", ""))
	assert.Equal(t, "Signup", d.Find("h2#auth-title").Text())

	b.post("/auth", url.Values{"username": {"jaspreet"}, "password": {"pw"}, "lang": {"en"}})
	fake.get(func(f *fakeBackend) {
		require.Len(t, f.authModes, 1)
		assert.Equal(t, domain.AuthModeSignup, f.authModes[0])
	})
}

func TestHXRequestGetsFragment(t *testing.T) {
	price := 2000.0
	fake := authedFake()
	fake.price = &price
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	resp, d := b.hxPost("/mandi-price", url.Values{"crop": {"Wheat"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, d.Find("h1.title").Length())
	assert.Equal(t, 1, d.Find("#mandi-card").Length())
	assert.Equal(t, "Current Price: ₹2000 per quintal", d.Find("p.price").Text())
}

func TestUnauthenticatedActionsGoHome(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))

	d := b.post("/weather", url.Values{"district": {"Amritsar"}})
	assert.Equal(t, 1, d.Find("#auth-card").Length())

	resp, _ := b.hxPost("/chatbot", url.Values{"query": {"hi"}})
	assert.Equal(t, "/", resp.Header.Get("HX-Redirect"))

	fake.get(func(f *fakeBackend) {
		assert.Empty(t, f.districts)
		assert.Empty(t, f.chats)
	})
}

func TestVoiceQuery(t *testing.T) {
	audio := "/audio/reply.mp3"
	fake := authedFake()
	fake.voiceReply = &domain.VoiceReply{QueryText: "mandi rate", ReplyText: "Current mandi price for Wheat: ₹2000", AudioURL: &audio}
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "question.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF...."))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("district", "Bathinda"))
	require.NoError(t, mw.WriteField("crop", "Cotton"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", b.srv.URL+"/voice-query", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("HX-Request", "true")

	resp, err := b.client.Do(req)
	require.NoError(t, err)
	d := b.doc(resp)

	assert.Equal(t, "You asked: mandi rate", d.Find("p.query-text").Text())
	assert.Equal(t, testApiBase+"/audio/reply.mp3", d.Find("audio").AttrOr("src", ""))

	fake.get(func(f *fakeBackend) {
		require.Len(t, f.voices, 1)
		assert.Equal(t, "question.wav", f.voices[0].Filename)
		assert.Equal(t, "Bathinda", f.voices[0].District)
		assert.Equal(t, "Cotton", f.voices[0].Crop)
	})
}

func TestVoiceQueryWithoutFile(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))
	b.login("gurpreet")

	_, d := b.hxPost("/voice-query", url.Values{})
	assert.Equal(t, "Choose an audio recording to send.", d.Find("p.error").Text())
	fake.get(func(f *fakeBackend) { assert.Empty(t, f.voices) })
}

func TestRateLimit(t *testing.T) {
	a := newTestApp(authedFake())
	a.Limiter = NewClientLimiter(0.001, 2, time.Minute)
	b := newBrowser(t, a)
	b.client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	for i := 0; i < 2; i++ {
		resp, err := b.client.PostForm(b.srv.URL+"/auth/mode", url.Values{})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	}

	resp, err := b.client.PostForm(b.srv.URL+"/auth/mode", url.Values{})
	require.NoError(t, err)
	d := b.doc(resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too many requests", d.Find("h2").Text())
}

func TestRateLimitHXLeavesCardAlone(t *testing.T) {
	a := newTestApp(authedFake())
	a.Limiter = NewClientLimiter(0.001, 2, time.Minute)
	b := newBrowser(t, a)
	b.login("gurpreet")

	resp, _ := b.hxPost("/weather", url.Values{"district": {"Amritsar"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest("POST", b.srv.URL+"/weather", strings.NewReader("district=Amritsar"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")

	resp, err = b.client.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotContains(t, strings.ToLower(string(body)), "<!doctype")
	assert.NotContains(t, string(body), "<html")
	assert.Contains(t, string(body), "Too many requests")
}

func TestErrorPages(t *testing.T) {
	b := newBrowser(t, newTestApp(authedFake()))

	resp, err := b.client.Get(b.srv.URL + "/nowhere")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "404", b.doc(resp).Find("h1.title").Text())

	resp, err = b.client.Get(b.srv.URL + "/weather")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthz(t *testing.T) {
	fake := authedFake()
	b := newBrowser(t, newTestApp(fake))

	resp, err := b.client.Get(b.srv.URL + "/healthz")
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["backend"])

	fake.set(func(f *fakeBackend) { f.healthErr = errBackendDown })

	resp, err = b.client.Get(b.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
