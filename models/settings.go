package models

// Settings is the application-wide configuration edited by admins.
type Settings struct {
	HeaderName     string `json:"headerName" yaml:"headerName"`
	HeaderSubtitle string `json:"headerSubtitle" yaml:"headerSubtitle"`
	JotformURL     string `json:"jotformUrl" yaml:"jotformUrl"`
	JotformAPIKey  string `json:"jotformApiKey" yaml:"jotformApiKey"`
	JotformFormID  string `json:"jotformFormId" yaml:"jotformFormId"`
	MetabaseURL    string `json:"metabaseUrl" yaml:"metabaseUrl"`
	GoogleSheetURL string `json:"googleSheetUrl" yaml:"googleSheetUrl"`

	// Reporting scope hints; display-only.
	EventNameFilter string `json:"eventNameFilter" yaml:"eventNameFilter"`
	EventWeek       string `json:"eventWeek" yaml:"eventWeek"`
	EventDates      string `json:"eventDates" yaml:"eventDates"`
}

func DefaultSettings() Settings {
	return Settings{
		HeaderName:     "Check-In System",
		HeaderSubtitle: "Vibee Experience 2026",
		JotformURL:     "https://vibee.jotform.com/251891714013958",
		JotformFormID:  "251891714013958",
	}
}
