package domain

// Запрос к анализирующему движку (формат analysis engine KataGo).
type AnalysisQuery struct {
	ID               string      `json:"id"`
	Moves            [][2]string `json:"moves"` // [["B","D4"], ["W","Q16"], ...]
	InitialStones    [][2]string `json:"initialStones,omitempty"`
	InitialPlayer    string      `json:"initialPlayer,omitempty"`
	Rules            string      `json:"rules"`
	Komi             float64     `json:"komi"`
	BoardXSize       int         `json:"boardXSize"`
	BoardYSize       int         `json:"boardYSize"`
	AnalyzeTurns     []int       `json:"analyzeTurns"`
	MaxVisits        int         `json:"maxVisits,omitempty"`
	IncludeOwnership bool        `json:"includeOwnership,omitempty"`
}

// Ответ движка с анализом одной позиции (одного хода линии).
type AnalysisResult struct {
	ID             string     `json:"id"`
	TurnNumber     int        `json:"turnNumber"`
	IsDuringSearch bool       `json:"isDuringSearch"`
	RootInfo       RootInfo   `json:"rootInfo"`
	MoveInfos      []MoveInfo `json:"moveInfos"`
	Error          string     `json:"error,omitempty"`
}

// Общая информация о проанализированной позиции.
type RootInfo struct {
	CurrentPlayer string  `json:"currentPlayer"` // "W" или "B"
	Winrate       float64 `json:"winrate"`       // доля, 0..1
	ScoreLead     float64 `json:"scoreLead"`
	Visits        int     `json:"visits"`
}

// Информация о предложенном продолжении.
type MoveInfo struct {
	Move      string   `json:"move"`
	Winrate   float64  `json:"winrate"`
	ScoreLead float64  `json:"scoreLead"`
	Visits    int      `json:"visits"`
	Order     int      `json:"order"`
	PV        []string `json:"pv"` // principal variation
}
