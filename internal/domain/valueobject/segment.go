package valueobject

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Segment представляет сегмент клиента (Value Object)
// Сегменты взаимоисключающие: клиент принадлежит ровно одному сегменту
type Segment string

const (
	SegmentVIP      Segment = "vip"
	SegmentActive   Segment = "active"
	SegmentNew      Segment = "new"
	SegmentInactive Segment = "inactive"
)

// ParseSegment нормализует сырое значение сегмента.
// Пустое или неизвестное значение трактуется как SegmentNew.
func ParseSegment(raw string) Segment {
	switch s := Segment(strings.ToLower(strings.TrimSpace(raw))); s {
	case SegmentVIP, SegmentActive, SegmentNew, SegmentInactive:
		return s
	default:
		return SegmentNew
	}
}

// Validate проверяет валидность сегмента
func (s Segment) Validate() error {
	switch s {
	case SegmentVIP, SegmentActive, SegmentNew, SegmentInactive:
		return nil
	default:
		return errors.New("invalid segment")
	}
}

// String возвращает строковое представление сегмента
func (s Segment) String() string {
	return string(s)
}

// Label возвращает отображаемое имя сегмента ("vip" -> "Vip")
func (s Segment) Label() string {
	// cases.Caser хранит состояние, поэтому создаем новый на каждый вызов
	return cases.Title(language.Und).String(string(s))
}

// IsActive возвращает true для сегментов, которые считаются активными
func (s Segment) IsActive() bool {
	return s == SegmentActive || s == SegmentVIP
}

// ColorToken возвращает цветовой токен сегмента для UI
func (s Segment) ColorToken() string {
	switch s {
	case SegmentVIP:
		return "gold"
	case SegmentActive:
		return "green"
	case SegmentNew:
		return "cyan"
	case SegmentInactive:
		return "red"
	default:
		return "blue"
	}
}

// IconToken возвращает токен иконки сегмента для UI
func (s Segment) IconToken() string {
	switch s {
	case SegmentVIP:
		return "crown"
	case SegmentActive:
		return "heart"
	case SegmentNew:
		return "spark"
	case SegmentInactive:
		return "alert"
	default:
		return "user"
	}
}

// AllSegments возвращает список всех допустимых сегментов
func AllSegments() []Segment {
	return []Segment{SegmentVIP, SegmentActive, SegmentNew, SegmentInactive}
}
