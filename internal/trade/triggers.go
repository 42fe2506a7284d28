package trade

// Direction is the exposure side of a derivatives position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// StopLoss converts a percentage into an absolute trigger price relative to
// price. A long position stops out below its entry, a short above it.
func StopLoss(price, percent float64, pos Direction) (float64, error) {
	switch pos {
	case Long:
		return price - price*percent/100, nil
	case Short:
		return price + price*percent/100, nil
	default:
		return 0, &InvalidPositionError{Pos: string(pos)}
	}
}

// TakeProfit mirrors StopLoss with the signs swapped: a long position takes
// profit above its entry, a short below it.
func TakeProfit(price, percent float64, pos Direction) (float64, error) {
	switch pos {
	case Long:
		return price + price*percent/100, nil
	case Short:
		return price - price*percent/100, nil
	default:
		return 0, &InvalidPositionError{Pos: string(pos)}
	}
}
