package postgresadapter

import (
	"meridian/contexts/campaign-operations/change-request-service/domain/entities"

	"github.com/shopspring/decimal"
)

// cardDocument is the jsonb shape for one card on the campaigns row.
type cardDocument struct {
	CardID       string `json:"card_id"`
	Headline     string `json:"headline"`
	Body         string `json:"body"`
	MediaURL     string `json:"media_url"`
	CallToAction string `json:"call_to_action"`
}

func cardDocumentsFromEntities(cards []entities.Card) []cardDocument {
	items := make([]cardDocument, 0, len(cards))
	for _, card := range cards {
		items = append(items, cardDocument{
			CardID:       card.CardID,
			Headline:     card.Headline,
			Body:         card.Body,
			MediaURL:     card.MediaURL,
			CallToAction: card.CallToAction,
		})
	}
	return items
}

func cardEntitiesFromDocuments(docs []cardDocument) []entities.Card {
	items := make([]entities.Card, 0, len(docs))
	for _, doc := range docs {
		items = append(items, entities.Card{
			CardID:       doc.CardID,
			Headline:     doc.Headline,
			Body:         doc.Body,
			MediaURL:     doc.MediaURL,
			CallToAction: doc.CallToAction,
		})
	}
	return items
}

// patchDocument is the jsonb shape of a stored proposal. Absent keys stay
// nil so the patch keeps its sparse semantics across a round trip.
type patchDocument struct {
	Name       *string             `json:"name,omitempty"`
	Budget     *decimal.Decimal    `json:"budget,omitempty"`
	DailyLimit *decimal.Decimal    `json:"daily_limit,omitempty"`
	Status     *string             `json:"status,omitempty"`
	Cards      []cardPatchDocument `json:"cards,omitempty"`
}

type cardPatchDocument struct {
	CardID       string  `json:"card_id"`
	Headline     *string `json:"headline,omitempty"`
	Body         *string `json:"body,omitempty"`
	MediaURL     *string `json:"media_url,omitempty"`
	CallToAction *string `json:"call_to_action,omitempty"`
}

func patchDocumentFromEntity(patch entities.CampaignPatch) patchDocument {
	doc := patchDocument{
		Name:       patch.Name,
		Budget:     patch.Budget,
		DailyLimit: patch.DailyLimit,
	}
	if patch.Status != nil {
		status := string(*patch.Status)
		doc.Status = &status
	}
	for _, card := range patch.Cards {
		doc.Cards = append(doc.Cards, cardPatchDocument{
			CardID:       card.CardID,
			Headline:     card.Headline,
			Body:         card.Body,
			MediaURL:     card.MediaURL,
			CallToAction: card.CallToAction,
		})
	}
	return doc
}

func (d patchDocument) toEntity() entities.CampaignPatch {
	patch := entities.CampaignPatch{
		Name:       d.Name,
		Budget:     d.Budget,
		DailyLimit: d.DailyLimit,
	}
	if d.Status != nil {
		status := entities.CampaignStatus(*d.Status)
		patch.Status = &status
	}
	for _, card := range d.Cards {
		patch.Cards = append(patch.Cards, entities.CardPatch{
			CardID:       card.CardID,
			Headline:     card.Headline,
			Body:         card.Body,
			MediaURL:     card.MediaURL,
			CallToAction: card.CallToAction,
		})
	}
	return patch
}
