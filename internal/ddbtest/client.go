// Package ddbtest provides an in-memory stand-in for the subset of the
// DynamoDB API used by the store package.
//
// It understands the expressions the store issues and nothing more:
// equality key conditions, attribute_exists / attribute_not_exists
// conditions and ADD updates. Transactions are evaluated all-or-nothing and
// fail with a TransactionCanceledException carrying per-item reasons, like
// the real service.
package ddbtest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a stored item.
type Item = map[string]types.AttributeValue

type table struct {
	hashKey  string
	rangeKey string
	items    map[string]Item
}

// Client is an in-memory DynamoDB. It is safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	tables map[string]*table
	fail   map[string]error
	calls  map[string]int

	// BatchSize, when positive, caps how many keys or writes a batch call
	// processes; the rest is returned as unprocessed.
	BatchSize int
}

// New returns an empty Client.
func New() *Client {
	return &Client{
		tables: make(map[string]*table),
		fail:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// CreateTable registers a table. rangeKey may be empty.
func (c *Client) CreateTable(name, hashKey, rangeKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = &table{hashKey: hashKey, rangeKey: rangeKey, items: make(map[string]Item)}
}

// FailNext makes the next call of op (e.g. "TransactWriteItems") return err.
func (c *Client) FailNext(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[op] = err
}

// Calls returns how many times op was called.
func (c *Client) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Get returns a copy of the item stored under key, or nil.
func (c *Client) Get(tableName string, key Item) Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableName]
	if !ok {
		return nil
	}
	k, err := t.keyOf(key)
	if err != nil {
		return nil
	}
	if item, ok := t.items[k]; ok {
		return maps.Clone(item)
	}
	return nil
}

// Len returns the number of items in a table.
func (c *Client) Len(tableName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

// Put stores item unconditionally, for seeding tests.
func (c *Client) Put(tableName string, item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableName]
	if !ok {
		panic("ddbtest: unknown table " + tableName)
	}
	k, err := t.keyOf(item)
	if err != nil {
		panic(err)
	}
	t.items[k] = maps.Clone(item)
}

func (c *Client) begin(op string) error {
	c.calls[op]++
	if err, ok := c.fail[op]; ok {
		delete(c.fail, op)
		return err
	}
	return nil
}

func (c *Client) table(name *string) (*table, error) {
	t, ok := c.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found: " + aws.ToString(name))}
	}
	return t, nil
}

// GetItem implements store.API.
func (c *Client) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("GetItem"); err != nil {
		return nil, err
	}
	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.GetItemOutput{}
	if item, ok := t.items[k]; ok {
		out.Item = maps.Clone(item)
	}
	return out, nil
}

// PutItem implements store.API.
func (c *Client) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("PutItem"); err != nil {
		return nil, err
	}
	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, t.items[k])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	t.items[k] = maps.Clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// Query implements store.API. Only "<hashKey> = :value" key conditions are supported.
func (c *Client) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("Query"); err != nil {
		return nil, err
	}
	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(aws.ToString(in.KeyConditionExpression), "=")
	if len(parts) != 2 {
		return nil, fmt.Errorf("ddbtest: unsupported key condition %q", aws.ToString(in.KeyConditionExpression))
	}
	name := resolveName(strings.TrimSpace(parts[0]), in.ExpressionAttributeNames)
	value, ok := in.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
	if !ok || name != t.hashKey {
		return nil, fmt.Errorf("ddbtest: unsupported key condition %q", aws.ToString(in.KeyConditionExpression))
	}
	want := scalar(value)

	var matched []Item
	for _, item := range t.items {
		if scalar(item[t.hashKey]) == want {
			matched = append(matched, item)
		}
	}

	descending := in.ScanIndexForward != nil && !*in.ScanIndexForward
	slices.SortFunc(matched, func(a, b Item) int {
		cmp := strings.Compare(scalar(a[t.rangeKey]), scalar(b[t.rangeKey]))
		if descending {
			return -cmp
		}
		return cmp
	})

	if in.ExclusiveStartKey != nil && t.rangeKey != "" {
		start := scalar(in.ExclusiveStartKey[t.rangeKey])
		idx := 0
		for idx < len(matched) {
			cmp := strings.Compare(scalar(matched[idx][t.rangeKey]), start)
			if (descending && cmp < 0) || (!descending && cmp > 0) {
				break
			}
			idx++
		}
		matched = matched[idx:]
	}

	out := &dynamodb.QueryOutput{}
	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
	}
	if in.Limit != nil && int(*in.Limit) == len(matched) && len(matched) > 0 {
		last := matched[len(matched)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{t.hashKey: last[t.hashKey]}
		if t.rangeKey != "" {
			out.LastEvaluatedKey[t.rangeKey] = last[t.rangeKey]
		}
	}
	for _, item := range matched {
		out.Items = append(out.Items, maps.Clone(item))
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

// BatchGetItem implements store.API. Projections are ignored.
func (c *Client) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("BatchGetItem"); err != nil {
		return nil, err
	}

	out := &dynamodb.BatchGetItemOutput{
		Responses:       make(map[string][]Item),
		UnprocessedKeys: make(map[string]types.KeysAndAttributes),
	}
	processed := 0
	for _, name := range slices.Sorted(maps.Keys(in.RequestItems)) {
		req := in.RequestItems[name]
		t, err := c.table(aws.String(name))
		if err != nil {
			return nil, err
		}
		for i, key := range req.Keys {
			if c.BatchSize > 0 && processed == c.BatchSize {
				rest := req
				rest.Keys = req.Keys[i:]
				out.UnprocessedKeys[name] = rest
				break
			}
			processed++
			k, err := t.keyOf(key)
			if err != nil {
				return nil, err
			}
			if item, ok := t.items[k]; ok {
				out.Responses[name] = append(out.Responses[name], maps.Clone(item))
			}
		}
	}
	return out, nil
}

// BatchWriteItem implements store.API.
func (c *Client) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("BatchWriteItem"); err != nil {
		return nil, err
	}

	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: make(map[string][]types.WriteRequest)}
	processed := 0
	for _, name := range slices.Sorted(maps.Keys(in.RequestItems)) {
		t, err := c.table(aws.String(name))
		if err != nil {
			return nil, err
		}
		reqs := in.RequestItems[name]
		for i, req := range reqs {
			if c.BatchSize > 0 && processed == c.BatchSize {
				out.UnprocessedItems[name] = reqs[i:]
				break
			}
			processed++
			switch {
			case req.PutRequest != nil:
				k, err := t.keyOf(req.PutRequest.Item)
				if err != nil {
					return nil, err
				}
				t.items[k] = maps.Clone(req.PutRequest.Item)
			case req.DeleteRequest != nil:
				k, err := t.keyOf(req.DeleteRequest.Key)
				if err != nil {
					return nil, err
				}
				delete(t.items, k)
			}
		}
	}
	return out, nil
}

type pendingWrite struct {
	table *table
	key   string
	item  Item // nil deletes
}

// TransactWriteItems implements store.API.
func (c *Client) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("TransactWriteItems"); err != nil {
		return nil, err
	}
	if len(in.TransactItems) > 100 {
		return nil, errors.New("ddbtest: too many transaction items")
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	writes := make([]pendingWrite, 0, len(in.TransactItems))
	touched := make(map[string]bool)
	failed := false

	for i, ti := range in.TransactItems {
		var (
			tableName *string
			key       Item
			cond      *string
			names     map[string]string
			apply     func(current Item) Item
		)
		switch {
		case ti.ConditionCheck != nil:
			tableName, key, cond, names = ti.ConditionCheck.TableName, ti.ConditionCheck.Key, ti.ConditionCheck.ConditionExpression, ti.ConditionCheck.ExpressionAttributeNames
		case ti.Put != nil:
			tableName, key, cond, names = ti.Put.TableName, ti.Put.Item, ti.Put.ConditionExpression, ti.Put.ExpressionAttributeNames
			item := ti.Put.Item
			apply = func(Item) Item { return maps.Clone(item) }
		case ti.Delete != nil:
			tableName, key, cond, names = ti.Delete.TableName, ti.Delete.Key, ti.Delete.ConditionExpression, ti.Delete.ExpressionAttributeNames
			apply = func(Item) Item { return nil }
		case ti.Update != nil:
			u := ti.Update
			tableName, key, cond, names = u.TableName, u.Key, u.ConditionExpression, u.ExpressionAttributeNames
			apply = func(current Item) Item {
				next := maps.Clone(current)
				if next == nil {
					next = maps.Clone(u.Key)
				}
				applyAdd(next, aws.ToString(u.UpdateExpression), u.ExpressionAttributeNames, u.ExpressionAttributeValues)
				return next
			}
			if _, err := parseAdd(aws.ToString(u.UpdateExpression)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("ddbtest: empty transaction item %d", i)
		}

		t, err := c.table(tableName)
		if err != nil {
			return nil, err
		}
		k, err := t.keyOf(key)
		if err != nil {
			return nil, err
		}
		if touched[aws.ToString(tableName)+"|"+k] {
			return nil, errors.New("ddbtest: transaction request cannot include multiple operations on one item")
		}
		touched[aws.ToString(tableName)+"|"+k] = true

		ok, err := evalCondition(aws.ToString(cond), names, t.items[k])
		if err != nil {
			return nil, err
		}
		if !ok {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed"), Message: aws.String("The conditional request failed")}
			failed = true
			continue
		}
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		if apply != nil {
			writes = append(writes, pendingWrite{table: t, key: k, item: apply(t.items[k])})
		}
	}

	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	for _, w := range writes {
		if w.item == nil {
			delete(w.table.items, w.key)
			continue
		}
		w.table.items[w.key] = w.item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (t *table) keyOf(item Item) (string, error) {
	h, ok := item[t.hashKey]
	if !ok {
		return "", fmt.Errorf("ddbtest: missing hash key %q", t.hashKey)
	}
	k := scalar(h)
	if t.rangeKey != "" {
		r, ok := item[t.rangeKey]
		if !ok {
			return "", fmt.Errorf("ddbtest: missing range key %q", t.rangeKey)
		}
		k += "\x00" + scalar(r)
	}
	return k, nil
}

func scalar(v types.AttributeValue) string {
	switch v := v.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if resolved, ok := names[name]; ok {
			return resolved
		}
	}
	return name
}

var conditionRE = regexp.MustCompile(`^(attribute_exists|attribute_not_exists)\((#?\w+)\)$`)

func evalCondition(expr string, names map[string]string, current Item) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	m := conditionRE.FindStringSubmatch(expr)
	if m == nil {
		return false, fmt.Errorf("ddbtest: unsupported condition %q", expr)
	}
	_, exists := current[resolveName(m[2], names)]
	if m[1] == "attribute_exists" {
		return exists, nil
	}
	return !exists, nil
}

type addClause struct {
	name  string
	value string
}

func parseAdd(expr string) ([]addClause, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(expr), "ADD ")
	if !ok {
		return nil, fmt.Errorf("ddbtest: unsupported update %q", expr)
	}
	var clauses []addClause
	for _, part := range strings.Split(rest, ",") {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			return nil, fmt.Errorf("ddbtest: unsupported update %q", expr)
		}
		clauses = append(clauses, addClause{name: fields[0], value: fields[1]})
	}
	return clauses, nil
}

func applyAdd(item Item, expr string, names map[string]string, values map[string]types.AttributeValue) {
	clauses, _ := parseAdd(expr)
	for _, cl := range clauses {
		name := resolveName(cl.name, names)
		var current int64
		if n, ok := item[name].(*types.AttributeValueMemberN); ok {
			current, _ = strconv.ParseInt(n.Value, 10, 64)
		}
		var delta int64
		if n, ok := values[cl.value].(*types.AttributeValueMemberN); ok {
			delta, _ = strconv.ParseInt(n.Value, 10, 64)
		}
		item[name] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+delta, 10)}
	}
}
