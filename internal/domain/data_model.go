package domain

import (
	"fmt"
	"strconv"
)

type AuthMode string

const (
	AuthModeLogin  AuthMode = "login"
	AuthModeSignup AuthMode = "signup"
)

// Path is the backend route the mode posts credentials to.
func (m AuthMode) Path() string {
	if m == AuthModeSignup {
		return "/signup"
	}
	return "/login"
}

func (m AuthMode) Label() string {
	if m == AuthModeSignup {
		return "Signup"
	}
	return "Login"
}

func (m AuthMode) Toggle() AuthMode {
	if m == AuthModeSignup {
		return AuthModeLogin
	}
	return AuthModeSignup
}

// Prompt is the hint shown next to the mode switch.
func (m AuthMode) Prompt() string {
	if m == AuthModeSignup {
		return "Already a user?"
	}
	return "No account?"
}

type Language string

const (
	LanguageEnglish Language = "en"
	LanguagePunjabi Language = "pa"
)

var Languages = []Language{LanguageEnglish, LanguagePunjabi}

func (l Language) Label() string {
	switch l {
	case LanguagePunjabi:
		return "ਪੰਜਾਬੀ"
	default:
		return "English"
	}
}

func ParseLanguage(code string) (Language, error) {
	for _, l := range Languages {
		if string(l) == code {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q", code)
}

var Districts = []string{
	"Ludhiana",
	"Amritsar",
	"Patiala",
	"Bathinda",
	"Ferozepur",
	"Hoshiarpur",
	"Jalandhar",
}

var Crops = []string{"Wheat", "Rice", "Maize", "Cotton", "Pulses"}

const (
	DefaultDistrict = "Ludhiana"
	DefaultCrop     = "Wheat"
	DefaultState    = "Punjab"
)

func IsDistrict(name string) bool { return contains(Districts, name) }

func IsCrop(name string) bool { return contains(Crops, name) }

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

type Credentials struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	PrefLang Language `json:"pref_lang"`
}

type AuthResult struct {
	Success bool `json:"success"`
}

type WeatherReading struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Rainfall    float64 `json:"rainfall"`
}

type WeatherReport struct {
	Latest   *WeatherReading  `json:"latest"`
	Forecast []WeatherReading `json:"forecast"`
}

type MandiQuote struct {
	Price *float64 `json:"price"`
}

// SoilInputs are the soil and climate readings sent for a recommendation
// and as chat context. Field names follow the backend wire format.
type SoilInputs struct {
	N        float64 `json:"N"`
	P        float64 `json:"P"`
	K        float64 `json:"K"`
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Ph       float64 `json:"ph"`
	Rainfall float64 `json:"rainfall"`
}

func DefaultSoilInputs() SoilInputs {
	return SoilInputs{N: 50, P: 50, K: 50, Temp: 28, Humidity: 60, Ph: 6.5, Rainfall: 100}
}

type SoilField struct {
	Name  string
	Value float64
}

var SoilFieldNames = []string{"N", "P", "K", "temp", "humidity", "ph", "rainfall"}

// Fields lists the inputs in form order.
func (s SoilInputs) Fields() []SoilField {
	return []SoilField{
		{"N", s.N},
		{"P", s.P},
		{"K", s.K},
		{"temp", s.Temp},
		{"humidity", s.Humidity},
		{"ph", s.Ph},
		{"rainfall", s.Rainfall},
	}
}

func (s *SoilInputs) Set(name string, v float64) error {
	switch name {
	case "N":
		s.N = v
	case "P":
		s.P = v
	case "K":
		s.K = v
	case "temp":
		s.Temp = v
	case "humidity":
		s.Humidity = v
	case "ph":
		s.Ph = v
	case "rainfall":
		s.Rainfall = v
	default:
		return fmt.Errorf("unknown soil field %q", name)
	}
	return nil
}

type Recommendation struct {
	Crop string `json:"crop"`
}

// ChatRequest flattens the soil inputs next to the query, matching the
// chatbot's request body.
type ChatRequest struct {
	Query    string `json:"query"`
	District string `json:"district"`
	Crop     string `json:"crop"`
	SoilInputs
	Lang Language `json:"lang"`
}

type ChatReply struct {
	Reply    string  `json:"reply"`
	AudioURL *string `json:"audio_url"`
}

type VoiceQuery struct {
	Filename string
	Audio    []byte
	District string
	Crop     string
	Lang     Language
}

type VoiceReply struct {
	QueryText string  `json:"query_text"`
	ReplyText string  `json:"reply_text"`
	AudioURL  *string `json:"audio_url"`
}

type Health struct {
	Status string `json:"status"`
}

// FormatNumber renders a backend number the way a browser prints it: no
// trailing zeros, no exponent for ordinary magnitudes.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
