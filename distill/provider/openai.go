// Package provider holds the OpenAI-backed oracle used by production runs.
// Everything above it talks to the distill.Oracle interface, so tests never
// touch this package.
package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/calehoff/profile-distill/distill"
)

const defaultMaxOutputTokens = 3000

// Client calls the OpenAI Responses API and satisfies distill.Oracle.
type Client struct {
	client          *openai.Client
	model           string
	maxOutputTokens int64
}

// NewClient builds a client for the given API key and model.
func NewClient(apiKey, model string) *Client {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client:          &c,
		model:           model,
		maxOutputTokens: defaultMaxOutputTokens,
	}
}

// profileResponse mirrors the profile JSON the model is asked to emit. Kept
// separate from distill.Profile so schema reflection sees plain []string
// fields.
type profileResponse struct {
	Tone               []string `json:"tone"`
	Style              []string `json:"style"`
	CommonPhrases      []string `json:"common_phrases"`
	PreferredTopics    []string `json:"preferred_topics"`
	AvgSentenceLength  float64  `json:"average_sentence_length"`
	VocabularyRichness float64  `json:"vocabulary_richness"`
}

var profileSchema = generateSchema[profileResponse]()

// Complete issues one Responses API call. When the request wants a profile,
// strict structured output is attached so the model cannot drift from the
// profile shape.
func (c *Client) Complete(ctx context.Context, req distill.Request) (distill.Generation, error) {
	if c == nil || c.client == nil {
		return distill.Generation{}, errors.New("provider: client is nil")
	}
	if c.model == "" {
		return distill.Generation{}, errors.New("provider: model is empty")
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOutputTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	if req.WantProfile {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "StyleProfile",
					Schema:      profileSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Writing style profile JSON"),
					Type:        "json_schema",
				},
			},
		}
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return distill.Generation{}, err
	}
	return distill.Generation{
		Text:       resp.OutputText(),
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureOpenAICompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureOpenAICompliance rewrites a reflected schema into the subset strict
// structured output accepts: every object closes additionalProperties and
// requires all of its properties.
func ensureOpenAICompliance(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
			var requiredFields []string
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(additionalProps)
	}
}
