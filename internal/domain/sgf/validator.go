package sgf

import (
	"fmt"
	"regexp"
	"strings"

	ownerrors "go_kifu/internal/errors"
)

// Пределы для входного текста записи: защита от раздутых и битых файлов
// до того, как они попадут в парсер. Действует независимо от строгости
// самого парсера.
const (
	MaxRecordSize = 500_000
	MaxMoves      = 1000
	MaxVariations = 100
)

var movePat = regexp.MustCompile(`;[BW]\[`)

// Validate проверяет сырой текст записи: размер, скобочную структуру,
// число ходов и вариантов. Возвращает errors.ErrInvalidRecord с описанием.
func Validate(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: empty record", ownerrors.ErrInvalidRecord)
	}
	if len(content) > MaxRecordSize {
		return fmt.Errorf("%w: record too large: %d bytes (max %d)", ownerrors.ErrInvalidRecord, len(content), MaxRecordSize)
	}
	if !strings.HasPrefix(content, "(") {
		return fmt.Errorf("%w: record must start with '('", ownerrors.ErrInvalidRecord)
	}
	if !strings.HasSuffix(content, ")") {
		return fmt.Errorf("%w: record must end with ')'", ownerrors.ErrInvalidRecord)
	}

	depth := 0
	for _, c := range content {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth < 0 {
			return fmt.Errorf("%w: unbalanced parentheses", ownerrors.ErrInvalidRecord)
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced parentheses", ownerrors.ErrInvalidRecord)
	}

	inBracket := false
	escaped := false
	for _, c := range content {
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '[':
			if inBracket {
				return fmt.Errorf("%w: nested brackets", ownerrors.ErrInvalidRecord)
			}
			inBracket = true
		case ']':
			if !inBracket {
				return fmt.Errorf("%w: unmatched closing bracket", ownerrors.ErrInvalidRecord)
			}
			inBracket = false
		}
	}
	if inBracket {
		return fmt.Errorf("%w: unclosed bracket", ownerrors.ErrInvalidRecord)
	}

	if moves := len(movePat.FindAllStringIndex(content, -1)); moves > MaxMoves {
		return fmt.Errorf("%w: too many moves: %d (max %d)", ownerrors.ErrInvalidRecord, moves, MaxMoves)
	}
	if variations := strings.Count(content, "(") - 1; variations > MaxVariations {
		return fmt.Errorf("%w: too many variations: %d (max %d)", ownerrors.ErrInvalidRecord, variations, MaxVariations)
	}
	return nil
}
