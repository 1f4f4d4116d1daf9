package graph

import (
	"errors"
	"fmt"

	"parking-navigator/internal/navigator/models"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidLayout раскладка отклонена строгой проверкой.
var ErrInvalidLayout = errors.New("invalid layout")

var validate = validator.New()

// Validate строгая проверка раскладки: теги структур, повторяющиеся id,
// ссылки на несуществующие узлы и петли. Все найденные проблемы
// возвращаются одной ошибкой, обёрнутой в ErrInvalidLayout.
func Validate(layout models.Layout) error {
	var problems []error

	if err := validate.Struct(layout); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Errorf("%s: failed on '%s'", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err)
		}
	}

	ids := make(map[string]struct{}, len(layout.Nodes))
	for _, n := range layout.Nodes {
		if _, dup := ids[n.ID]; dup {
			problems = append(problems, fmt.Errorf("duplicate node id %q", n.ID))
			continue
		}
		ids[n.ID] = struct{}{}
	}

	checkRef := func(kind, from, to string) {
		if from == to {
			problems = append(problems, fmt.Errorf("%s %q references itself", kind, from))
			return
		}
		if _, ok := ids[from]; !ok {
			problems = append(problems, fmt.Errorf("%s %s-%s: unknown node %q", kind, from, to, from))
		}
		if _, ok := ids[to]; !ok {
			problems = append(problems, fmt.Errorf("%s %s-%s: unknown node %q", kind, from, to, to))
		}
	}
	for _, n := range layout.Nodes {
		for _, nb := range n.Neighbors {
			checkRef("neighbor", n.ID, nb)
		}
	}
	for _, l := range layout.Links {
		checkRef("link", l.From, l.To)
	}

	slots := make(map[string]struct{}, len(layout.Slots))
	for _, s := range layout.Slots {
		if _, dup := slots[s.ID]; dup {
			problems = append(problems, fmt.Errorf("duplicate slot id %q", s.ID))
			continue
		}
		slots[s.ID] = struct{}{}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidLayout, errors.Join(problems...))
}
