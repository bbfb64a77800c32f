package engine

import "sort"

// MergeShallow сливает два словаря поверхностно: ключи override
// замещают ключи base только на верхнем уровне.
//
// Используется для headers и query-параметров.
// Если оба входа nil — возвращает nil; пустой результат схлопывается в nil.
func MergeShallow(base, override map[string]any) map[string]any {
	if base == nil && override == nil {
		return nil
	}

	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// MergeDeep сливает два словаря рекурсивно: вложенные mapping-значения
// мержатся поэлементно, любые другие значения override (включая
// последовательности) замещают значение base целиком — массивы
// никогда не конкатенируются.
//
// Используется для тел запросов.
func MergeDeep(base, override map[string]any) map[string]any {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		baseVal, exists := result[k]
		baseMap, baseOK := baseVal.(map[string]any)
		overrideMap, overrideOK := v.(map[string]any)
		if exists && baseOK && overrideOK {
			result[k] = MergeDeep(baseMap, overrideMap)
		} else {
			result[k] = v
		}
	}

	return result
}

// MergeTags объединяет два списка меток: union, без дубликатов,
// в отсортированном порядке. Если оба входа nil — возвращает nil.
func MergeTags(base, override []string) []string {
	if base == nil && override == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(base)+len(override))
	for _, t := range base {
		seen[t] = struct{}{}
	}
	for _, t := range override {
		seen[t] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}

	result := make([]string, 0, len(seen))
	for t := range seen {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}
