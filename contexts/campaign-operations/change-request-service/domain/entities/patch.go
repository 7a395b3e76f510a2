package entities

import "github.com/shopspring/decimal"

// CampaignPatch is a partial campaign document. Nil fields leave the
// campaign untouched; set fields replace the campaign's value wholesale.
type CampaignPatch struct {
	Name       *string
	Budget     *decimal.Decimal
	DailyLimit *decimal.Decimal
	Status     *CampaignStatus
	Cards      []CardPatch
}

// CardPatch edits one card, matched into the campaign's cards by CardID.
type CardPatch struct {
	CardID       string
	Headline     *string
	Body         *string
	MediaURL     *string
	CallToAction *string
}

func (p CampaignPatch) IsZero() bool {
	return p.Name == nil &&
		p.Budget == nil &&
		p.DailyLimit == nil &&
		p.Status == nil &&
		len(p.Cards) == 0
}

func (p CampaignPatch) TouchesBudget() bool {
	return p.Budget != nil
}

// ProposesActivation reports whether the patch asks to bring the campaign
// live (submission or renewal).
func (p CampaignPatch) ProposesActivation() bool {
	if p.Status == nil {
		return false
	}
	return *p.Status == CampaignStatusPending || *p.Status == CampaignStatusActive
}

// ApplyPatch merges the patch into a copy of the campaign, field by field.
// Cards are merged by stable CardID: matching entries are field-merged,
// unmatched patch entries are dropped (rejected upstream at creation time
// for non-privileged actors).
func ApplyPatch(campaign Campaign, patch CampaignPatch) Campaign {
	merged := campaign.Clone()
	if patch.Name != nil {
		merged.Name = *patch.Name
	}
	if patch.Budget != nil {
		merged.Budget = *patch.Budget
	}
	if patch.DailyLimit != nil {
		limit := *patch.DailyLimit
		merged.DailyLimit = &limit
	}
	if patch.Status != nil {
		merged.Status = *patch.Status
	}
	for _, cardPatch := range patch.Cards {
		for i := range merged.Cards {
			if merged.Cards[i].CardID != cardPatch.CardID {
				continue
			}
			merged.Cards[i] = applyCardPatch(merged.Cards[i], cardPatch)
			break
		}
	}
	return merged
}

func applyCardPatch(card Card, patch CardPatch) Card {
	if patch.Headline != nil {
		card.Headline = *patch.Headline
	}
	if patch.Body != nil {
		card.Body = *patch.Body
	}
	if patch.MediaURL != nil {
		card.MediaURL = *patch.MediaURL
	}
	if patch.CallToAction != nil {
		card.CallToAction = *patch.CallToAction
	}
	return card
}

// MergePatches overlays an edit onto a stored proposal. Overlay fields win;
// overlay card patches replace stored ones with the same CardID and extend
// the set otherwise.
func MergePatches(base CampaignPatch, overlay CampaignPatch) CampaignPatch {
	merged := base
	merged.Cards = append([]CardPatch(nil), base.Cards...)
	if overlay.Name != nil {
		merged.Name = overlay.Name
	}
	if overlay.Budget != nil {
		merged.Budget = overlay.Budget
	}
	if overlay.DailyLimit != nil {
		merged.DailyLimit = overlay.DailyLimit
	}
	if overlay.Status != nil {
		merged.Status = overlay.Status
	}
	for _, cardPatch := range overlay.Cards {
		replaced := false
		for i := range merged.Cards {
			if merged.Cards[i].CardID == cardPatch.CardID {
				merged.Cards[i] = cardPatch
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Cards = append(merged.Cards, cardPatch)
		}
	}
	return merged
}

// UnknownCardRefs returns the ids of patch cards that do not exist on the
// campaign.
func (c Campaign) UnknownCardRefs(patch CampaignPatch) []string {
	known := make(map[string]struct{}, len(c.Cards))
	for _, card := range c.Cards {
		known[card.CardID] = struct{}{}
	}
	var unknown []string
	for _, cardPatch := range patch.Cards {
		if _, ok := known[cardPatch.CardID]; !ok {
			unknown = append(unknown, cardPatch.CardID)
		}
	}
	return unknown
}
