package generation

import "github.com/phrazzld/scry-cards/internal/domain"

// SchemaType is a JSON schema primitive type.
type SchemaType string

// Supported schema types.
const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the provider-neutral subset of JSON schema used to constrain
// structured output. Adapters translate it into their own dialect.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	// PropertyOrder lists Properties keys in the order they should be emitted.
	PropertyOrder []string `json:"-"`
	Items         *Schema  `json:"items,omitempty"`
	Required      []string `json:"required,omitempty"`
	Enum          []string `json:"enum,omitempty"`
	Minimum       *float64 `json:"minimum,omitempty"`
	Maximum       *float64 `json:"maximum,omitempty"`
}

// ImageRefField is the property a card uses to reference an attached image.
// Adapters rewrite it into ImageURLField before returning.
const (
	ImageRefField = "imageRef"
	ImageURLField = "imageUrl"
)

func floatPtr(f float64) *float64 { return &f }

// OutlineSchema constrains topic outline extraction.
func OutlineSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"topics": {
				Type:        TypeArray,
				Description: "Main topics in document order",
				Items: &Schema{
					Type: TypeObject,
					Properties: map[string]*Schema{
						"title": {Type: TypeString, Description: "Topic title as it appears in the text"},
						"subtopics": {
							Type:        TypeArray,
							Description: "Subtopic names as they appear in the text",
							Items:       &Schema{Type: TypeString},
						},
					},
					PropertyOrder: []string{"title", "subtopics"},
					Required:      []string{"title"},
				},
			},
		},
		PropertyOrder: []string{"topics"},
		Required:      []string{"topics"},
	}
}

// FlashcardSchema constrains flashcard generation for the given options.
// The subtopic field is required only when sub-decks are requested and the
// image reference only exists when images are attached.
func FlashcardSchema(cardTypes []domain.CardType, subdecks bool, imageCount int) *Schema {
	enum := make([]string, 0, len(cardTypes))
	for _, ct := range cardTypes {
		enum = append(enum, string(ct))
	}

	card := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"question": {Type: TypeString, Description: "Front of the card"},
			"answer":   {Type: TypeString, Description: "Back of the card"},
			"cardType": {Type: TypeString, Enum: enum},
			"sourceExcerpt": {
				Type:        TypeString,
				Description: "Short verbatim excerpt of the source supporting the answer",
			},
		},
		PropertyOrder: []string{"question", "answer", "cardType", "sourceExcerpt"},
		Required:      []string{"question", "answer", "cardType"},
	}

	if subdecks {
		card.Properties["subtopic"] = &Schema{Type: TypeString, Description: "Subtopic this card belongs to"}
		card.PropertyOrder = append(card.PropertyOrder, "subtopic")
		card.Required = append(card.Required, "subtopic")
	}

	if imageCount > 0 {
		card.Properties[ImageRefField] = &Schema{
			Type:        TypeInteger,
			Description: "1-based number of the most relevant attached image, or 0 for none",
			Minimum:     floatPtr(0),
			Maximum:     floatPtr(float64(imageCount)),
		}
		card.PropertyOrder = append(card.PropertyOrder, ImageRefField)
	}

	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"cards": {Type: TypeArray, Items: card},
		},
		PropertyOrder: []string{"cards"},
		Required:      []string{"cards"},
	}
}
