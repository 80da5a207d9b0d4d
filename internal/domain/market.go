package domain

import (
	"strings"
	"time"
)

// Market representa un mercado binario "Up or Down" de 5 minutos en Polymarket.
type Market struct {
	ConditionID string
	Question    string
	Slug        string
	EndDate     time.Time // fecha de resolución; zero si Gamma no la devuelve
	Tokens      [2]Token
	Active      bool
	Closed      bool
}

// Token es uno de los dos lados del mercado (Up/Down).
type Token struct {
	TokenID string
	Outcome string // "Up" | "Down"
}

// UpToken devuelve el token que paga si el activo sube.
func (m Market) UpToken() Token {
	for _, t := range m.Tokens {
		if strings.EqualFold(t.Outcome, "Up") || strings.EqualFold(t.Outcome, "Yes") {
			return t
		}
	}
	return m.Tokens[0]
}

// DownToken devuelve el token que paga si el activo baja.
func (m Market) DownToken() Token {
	for _, t := range m.Tokens {
		if strings.EqualFold(t.Outcome, "Down") || strings.EqualFold(t.Outcome, "No") {
			return t
		}
	}
	return m.Tokens[1]
}

// SecondsRemaining devuelve los segundos hasta la resolución, acotados en 0.
// Devuelve nil si EndDate no está definido.
func (m Market) SecondsRemaining(now time.Time) *float64 {
	if m.EndDate.IsZero() {
		return nil
	}
	secs := m.EndDate.Sub(now).Seconds()
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen caracteres.
// Si la pregunta está vacía usa los primeros caracteres del conditionID como fallback.
func TruncateQuestion(question, conditionID string, maxLen int) string {
	q := question
	if q == "" {
		if len(conditionID) > 20 {
			q = conditionID[:20] + "..."
		} else {
			q = conditionID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
