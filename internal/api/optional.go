package api

import "encoding/json"

// Опциональные поля частичных обновлений. Стандартный omitempty не
// отличает "поле не передано" от "передан null", а для документных
// полей это разные операции: пропуск против сброса в null. Кастомный
// UnmarshalJSON вызывается только для присутствующих полей, поэтому
// Set=true означает, что поле было в теле запроса.

// optionalDoc — присутствие/значение произвольного JSON документа.
type optionalDoc struct {
	Set   bool
	Value any
}

// UnmarshalJSON реализует json.Unmarshaler.
func (o *optionalDoc) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

// Map возвращает значение как mapping (nil для null и не-mapping).
func (o optionalDoc) Map() map[string]any {
	m, _ := o.Value.(map[string]any)
	return m
}

// optionalStringList — присутствие/значение списка строк.
type optionalStringList struct {
	Set    bool
	Values []string
}

// UnmarshalJSON реализует json.Unmarshaler.
func (o *optionalStringList) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Values)
}

// optionalInt — присутствие/значение nullable int.
type optionalInt struct {
	Set   bool
	Value *int
}

// UnmarshalJSON реализует json.Unmarshaler.
func (o *optionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}
