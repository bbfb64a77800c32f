package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaiso/jobqueue/internal/domain"
)

// varPattern — форма ссылки на данные предыдущего шага:
//
//	{{tasks[N].input_data}}
//	{{tasks[N].output_data.field.subfield}}
var varPattern = regexp.MustCompile(`\{\{tasks\[(\d+)\]\.(input_data|output_data)((?:\.\w+)*)\}\}`)

// Resolver резолвит ссылки шаблонов против выполненных tasks.
//
// Правила:
//   - mapping резолвится по значениям, последовательность — поэлементно;
//   - строка, целиком состоящая из одной ссылки, возвращает сырое
//     значение с сохранением типа (число, bool, mapping и т.д.);
//   - ссылки внутри строки интерполируются со строкованием значений
//     (nil — пустая строка);
//   - выход индекса за границы цепочки и проход пути через не-mapping —
//     *ResolveError; отсутствующий bucket или ключ — nil плюс warning.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver создаёт Resolver. При nil логгере используется slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// ResolveTemplate резолвит все ссылки в произвольном вложенном значении.
// Резолвинг через Resolver по умолчанию; удобная форма для вызова без
// настройки логгера.
func ResolveTemplate(template any, tasks []*domain.Task) (any, error) {
	return NewResolver(nil).Resolve(template, tasks)
}

// Resolve резолвит все ссылки в произвольном вложенном значении.
func (r *Resolver) Resolve(template any, tasks []*domain.Task) (any, error) {
	switch v := template.(type) {
	case nil:
		return nil, nil

	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, val := range v {
			rv, err := r.Resolve(val, tasks)
			if err != nil {
				return nil, err
			}
			resolved[key] = rv
		}
		return resolved, nil

	case []any:
		resolved := make([]any, len(v))
		for i, val := range v {
			rv, err := r.Resolve(val, tasks)
			if err != nil {
				return nil, err
			}
			resolved[i] = rv
		}
		return resolved, nil

	case string:
		return r.resolveString(v, tasks)

	default:
		// Прочие листовые значения (числа, bool) остаются как есть.
		return template, nil
	}
}

// resolveString резолвит ссылки внутри строки.
func (r *Resolver) resolveString(s string, tasks []*domain.Task) (any, error) {
	matches := varPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	// Строка целиком — одна ссылка: возвращаем типизированное значение.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		return r.lookup(s, matches[0], tasks)
	}

	// Интерполяция: каждое значение строкуется, nil — пустая строка.
	var b strings.Builder
	prev := 0
	for _, m := range matches {
		value, err := r.lookup(s, m, tasks)
		if err != nil {
			return nil, err
		}
		b.WriteString(s[prev:m[0]])
		b.WriteString(stringify(value))
		prev = m[1]
	}
	b.WriteString(s[prev:])
	return b.String(), nil
}

// lookup извлекает значение по одной ссылке.
// m — индексы submatch из FindAllStringSubmatchIndex.
func (r *Resolver) lookup(s string, m []int, tasks []*domain.Task) (any, error) {
	ref := s[m[0]:m[1]]
	index, _ := strconv.Atoi(s[m[2]:m[3]])
	bucket := s[m[4]:m[5]]
	path := s[m[6]:m[7]]

	if index >= len(tasks) {
		detail := fmt.Errorf("%w: task chain is empty", ErrTaskIndexOutOfRange)
		if len(tasks) > 0 {
			detail = fmt.Errorf("%w: available 0-%d", ErrTaskIndexOutOfRange, len(tasks)-1)
		}
		return nil, &ResolveError{
			Reference: ref,
			TaskIndex: index,
			Err:       detail,
		}
	}

	task := tasks[index]
	var data any
	if bucket == "input_data" {
		data = task.InputData
	} else {
		data = task.OutputData
	}

	if data == nil {
		r.logger.Warn("template reference to empty data bucket",
			"reference", ref,
			"task_index", index,
			"bucket", bucket,
		)
		return nil, nil
	}

	if path == "" {
		return data, nil
	}

	// Проход пути field.subfield через вложенные mappings.
	current := data
	for _, field := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		mapping, ok := current.(map[string]any)
		if !ok {
			return nil, &ResolveError{
				Reference: ref,
				TaskIndex: index,
				Field:     field,
				Err:       ErrNonMappingTraversal,
			}
		}
		current, ok = mapping[field]
		if !ok || current == nil {
			r.logger.Warn("template field not found",
				"reference", ref,
				"task_index", index,
				"field", field,
			)
			return nil, nil
		}
	}

	return current, nil
}

// HasTemplateVariables рекурсивно проверяет наличие хотя бы одной ссылки.
// Используется чтобы пропустить резолвинг статичных шаблонов.
func HasTemplateVariables(template any) bool {
	switch v := template.(type) {
	case map[string]any:
		for _, val := range v {
			if HasTemplateVariables(val) {
				return true
			}
		}
		return false
	case []any:
		for _, val := range v {
			if HasTemplateVariables(val) {
				return true
			}
		}
		return false
	case string:
		return varPattern.MatchString(v)
	default:
		return false
	}
}

// stringify приводит значение к строке для интерполяции.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
