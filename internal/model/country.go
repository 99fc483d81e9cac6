package model

// Country は外部プロバイダーから取得し正規化した国情報。
// 永続化せず、リクエストごとに取得する。
type Country struct {
	Name         string              `json:"name"`
	OfficialName string              `json:"officialName"`
	Capital      []string            `json:"capital"`
	Region       string              `json:"region"`
	Subregion    string              `json:"subregion"`
	Population   int64               `json:"population"`
	Area         float64             `json:"area"`
	Flag         string              `json:"flag"`
	FlagPNG      string              `json:"flagPng"`
	Currencies   map[string]Currency `json:"currencies"`
	Languages    map[string]string   `json:"languages"`
	CCA2         string              `json:"cca2"`
	CCA3         string              `json:"cca3"`
	CCN3         string              `json:"ccn3"`
	Continents   []string            `json:"continents"`
	Timezones    []string            `json:"timezones"`
	Borders      []string            `json:"borders"`
}

// Currency は通貨の表示名と記号。
type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}
