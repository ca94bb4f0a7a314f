package services

import (
	"scz-inmuebles/extractor"
	"scz-inmuebles/models"
)

// MergeExtraction combines the regex result with the fields an LLM returned.
// Regex values always win; the LLM only fills fields regex left empty, and the
// amenity sets are unioned. The method is llm_only when regex found nothing.
func MergeExtraction(regex, fromLLM models.ExtractedFields) models.ExtractedFields {
	out := regex

	if out.Price == nil && fromLLM.Price != nil {
		out.Price = fromLLM.Price
		out.Currency = fromLLM.Currency
		out.CurrencyGuess = fromLLM.CurrencyGuess
	}
	if out.Bedrooms == nil {
		out.Bedrooms = fromLLM.Bedrooms
	}
	if out.Bathrooms == nil {
		out.Bathrooms = fromLLM.Bathrooms
	}
	if out.Garages == nil {
		out.Garages = fromLLM.Garages
	}
	if !out.HasArea() {
		out.LotArea = fromLLM.LotArea
		out.BuiltArea = fromLLM.BuiltArea
		out.TotalArea = fromLLM.TotalArea
	}
	if out.Zone == "" {
		out.Zone = fromLLM.Zone
	}
	if out.PropertyType == "" {
		out.PropertyType = fromLLM.PropertyType
	}
	out.Amenities = extractor.UnionAmenities(regex.Amenities, fromLLM.Amenities)

	if regex.RegexFieldsFound == 0 {
		out.Method = models.MethodLLMOnly
	} else {
		out.Method = models.MethodHybrid
	}
	return out
}

// seedKnown fills the gaps of parsed with the structured values a provider
// export already carried. Structured columns win over text.
func seedKnown(known, parsed models.ExtractedFields) models.ExtractedFields {
	out := known
	if out.Price == nil {
		out.Price = parsed.Price
		out.Currency = parsed.Currency
		out.CurrencyGuess = parsed.CurrencyGuess
	}
	if out.Bedrooms == nil {
		out.Bedrooms = parsed.Bedrooms
	}
	if out.Bathrooms == nil {
		out.Bathrooms = parsed.Bathrooms
	}
	if out.Garages == nil {
		out.Garages = parsed.Garages
	}
	if !out.HasArea() {
		out.LotArea = parsed.LotArea
		out.BuiltArea = parsed.BuiltArea
		out.TotalArea = parsed.TotalArea
	}
	if out.Zone == "" {
		out.Zone = parsed.Zone
	}
	if out.PropertyType == "" {
		out.PropertyType = parsed.PropertyType
	}
	out.Amenities = extractor.UnionAmenities(known.Amenities, parsed.Amenities)
	out.RegexFieldsFound = out.CountFound()
	return out
}

// degrade marks a result whose LLM completion could not be used.
func degrade(f models.ExtractedFields) models.ExtractedFields {
	if f.RegexFieldsFound > 0 {
		f.Method = models.MethodRegexFallback
	} else {
		f.Method = models.MethodError
	}
	return f
}
