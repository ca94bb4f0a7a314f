package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"scz-inmuebles/models"
)

// Field names the LLM may be asked for.
const (
	FieldPrice        = "precio"
	FieldCurrency     = "moneda"
	FieldRooms        = "habitaciones"
	FieldZone         = "zona"
	FieldArea         = "superficie"
	FieldPropertyType = "tipo_propiedad"
)

var fieldHints = map[string]string{
	FieldPrice:        `"precio": número sin separadores de miles o null`,
	FieldCurrency:     `"moneda": "USD" o "BOB" o null`,
	FieldRooms:        `"habitaciones": número entero de dormitorios o null`,
	FieldZone:         `"zona": nombre del barrio o zona de Santa Cruz o null`,
	FieldArea:         `"superficie": superficie en m2 como número o null`,
	FieldPropertyType: `"tipo_propiedad": casa, departamento, terreno, oficina, local comercial, etc. o null`,
}

const maxPromptDescription = 1500

// MissingFields lists, in a fixed order, the fields the LLM should fill for
// known. Bathrooms and garages are never requested.
func MissingFields(known models.ExtractedFields) []string {
	var out []string
	if known.Price == nil {
		out = append(out, FieldPrice, FieldCurrency)
	}
	if known.Bedrooms == nil {
		out = append(out, FieldRooms)
	}
	if known.Zone == "" {
		out = append(out, FieldZone)
	}
	if !known.HasArea() {
		out = append(out, FieldArea)
	}
	if known.PropertyType == "" {
		out = append(out, FieldPropertyType)
	}
	return out
}

// BuildPrompt renders the extraction prompt for the fields known is missing.
// Values already found are embedded as context so they are not asked again.
func BuildPrompt(description, title string, known models.ExtractedFields) (string, []string) {
	missing := MissingFields(known)

	hints := make([]string, 0, len(missing))
	for _, f := range missing {
		hints = append(hints, "  "+fieldHints[f])
	}

	desc := []rune(strings.TrimSpace(description))
	if len(desc) > maxPromptDescription {
		desc = desc[:maxPromptDescription]
	}

	var b strings.Builder
	b.WriteString("Extrae del siguiente anuncio inmobiliario únicamente los campos pedidos.\n\n")
	if title != "" {
		fmt.Fprintf(&b, "Título: %s\n", title)
	}
	fmt.Fprintf(&b, "Descripción: %s\n\n", string(desc))
	if kc := knownContext(known); kc != "" {
		fmt.Fprintf(&b, "Datos ya conocidos (no los vuelvas a extraer): %s\n\n", kc)
	}
	b.WriteString("Campos a extraer: " + strings.Join(missing, ", ") + "\n\n")
	b.WriteString("Responde solo con un objeto JSON con estas claves:\n{\n")
	b.WriteString(strings.Join(hints, ",\n"))
	b.WriteString("\n}\nUsa null cuando el dato no aparezca en el texto. No inventes valores.")
	return b.String(), missing
}

// knownContext renders the fields already filled as a compact JSON object.
func knownContext(f models.ExtractedFields) string {
	known := map[string]any{}
	if f.Price != nil {
		known[FieldPrice] = *f.Price
		if f.Currency != "" {
			known[FieldCurrency] = string(f.Currency)
		}
	}
	if f.Bedrooms != nil {
		known[FieldRooms] = *f.Bedrooms
	}
	if f.Bathrooms != nil {
		known["banos"] = *f.Bathrooms
	}
	if f.Zone != "" {
		known[FieldZone] = f.Zone
	}
	if a := f.Area(); a != nil {
		known[FieldArea] = *a
	}
	if f.PropertyType != "" {
		known[FieldPropertyType] = f.PropertyType
	}
	if len(known) == 0 {
		return ""
	}
	// encoding/json sorts map keys.
	data, err := json.Marshal(known)
	if err != nil {
		return ""
	}
	return string(data)
}
