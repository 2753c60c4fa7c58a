package store

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ExistsCondition returns the condition expression requiring the item to exist.
// attr must be a key attribute of the table.
func ExistsCondition(attr string) string {
	return "attribute_exists(" + attr + ")"
}

// NotExistsCondition returns the condition expression requiring the item to be absent.
// attr must be a key attribute of the table.
func NotExistsCondition(attr string) string {
	return "attribute_not_exists(" + attr + ")"
}

// counterDelta returns the ADD update for a counter and its expression values.
func counterDelta(attr string, delta int64) (string, map[string]types.AttributeValue) {
	placeholder := ":one"
	if delta < 0 {
		placeholder = ":minusOne"
	}
	return fmt.Sprintf("ADD %s %s", attr, placeholder), map[string]types.AttributeValue{
		placeholder: &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", delta)},
	}
}

// conditionErrors maps transaction item indices to the domain error reported
// when that item's condition fails.
type conditionErrors map[int]error

// retryableReasons are the cancellation reason codes that can clear on their
// own: contention with another transaction or exhausted capacity.
var retryableReasons = map[string]bool{
	"TransactionConflict":           true,
	"ThrottlingError":               true,
	"ProvisionedThroughputExceeded": true,
}

// mapTransactionError maps DynamoDB transaction errors to domain errors.
// A failed condition on item i yields conds[i]. A cancellation caused by
// contention or throttling is transient; any other cancellation is
// ErrRejected. Errors that are not cancellations are transient.
func mapTransactionError(err error, conds conditionErrors) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return transient(err)
	}

	for i, reason := range txErr.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			if mapped, ok := conds[i]; ok {
				return mapped
			}
		}
	}
	for _, reason := range txErr.CancellationReasons {
		if retryableReasons[aws.ToString(reason.Code)] {
			return transient(err)
		}
	}
	return fmt.Errorf("%w: %w", ErrRejected, err)
}

// mapConditionalError maps a single-item conditional write failure.
func mapConditionalError(err error, condErr error) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return condErr
	}
	return transient(err)
}

func transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
