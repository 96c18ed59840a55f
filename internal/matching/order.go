package matching

import "github.com/PxPatel/matching-service/internal/types"

// Re-export types so callers of the engine need a single import
type (
	SideType = types.SideType
	Order    = types.Order
	Trade    = types.Trade
)

// Re-export constants
const (
	NoActionSide = types.NoActionSide
	Buy          = types.Buy
	Sell         = types.Sell
)

// Re-export constructor
var NewOrder = types.NewOrder
