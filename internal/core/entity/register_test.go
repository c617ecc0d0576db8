package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

func TestLinkRef_Complete(t *testing.T) {
	owner := id.New()

	assert.False(t, NoLink.Complete())
	assert.False(t, LinkRef{Kind: LinkPurchase}.Complete())
	assert.False(t, LinkRef{ID: &owner}.Complete())
	assert.True(t, LinkTo(LinkPurchase, owner).Complete())
}
