package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the order review actions carried in callback data.
type Kind string

const (
	KindApprove Kind = "approve"
	KindReject  Kind = "reject"
	KindDetail  Kind = "detail"
)

const (
	currencyPrefix    = "currency:"
	methodPrefix      = "method:"
	checkSubscription = "check_subscription"
)

var ErrUnknownCommand = errors.New("unknown callback command")

// Command is a review action on a single order, encoded as "<kind>:<id>"
// callback data.
type Command struct {
	Kind    Kind
	OrderID int64
}

func (c Command) Encode() string {
	return fmt.Sprintf("%s:%d", c.Kind, c.OrderID)
}

func DecodeCommand(data string) (Command, error) {
	kind, rest, ok := strings.Cut(data, ":")
	if !ok {
		return Command{}, ErrUnknownCommand
	}

	switch Kind(kind) {
	case KindApprove, KindReject, KindDetail:
	default:
		return Command{}, ErrUnknownCommand
	}

	orderID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return Command{}, ErrUnknownCommand
	}

	return Command{Kind: Kind(kind), OrderID: orderID}, nil
}
