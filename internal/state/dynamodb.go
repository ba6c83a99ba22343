package state

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// KeyAttribute is the hash key of the state table.
const KeyAttribute = "Key"

type lockItem struct {
	Key       string
	ID        string
	Operation string
	Who       string
	Created   time.Time
}

type stateItem struct {
	Key     string
	Serial  int64
	Lineage string
	Body    string
}

// DynamoDBStore keeps the lock and the snapshot of one cluster as two items of a shared table.
type DynamoDBStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
	name   string
}

func NewDynamoDBStore(client dynamodbiface.DynamoDBAPI, table, name string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table, name: name}
}

func (s *DynamoDBStore) Close() error {
	return nil
}

func (s *DynamoDBStore) lockKey() string {
	return s.name + "/lock"
}

func (s *DynamoDBStore) stateKey() string {
	return s.name + "/state"
}

func (s *DynamoDBStore) key(key string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		KeyAttribute: {S: aws.String(key)},
	}
}

func isConditionFailed(err error) bool {
	_, ok := err.(*dynamodb.ConditionalCheckFailedException)
	return ok
}

func (s *DynamoDBStore) Lock(ctx context.Context, info LockInfo) (string, error) {
	item, err := dynamodbattribute.MarshalMap(lockItem{
		Key:       s.lockKey(),
		ID:        info.ID,
		Operation: info.Operation,
		Who:       info.Who,
		Created:   info.Created,
	})
	if err != nil {
		return "", err
	}
	_, err = s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]*string{"#k": aws.String(KeyAttribute)},
	})
	if err != nil {
		if !isConditionFailed(err) {
			return "", errors.Wrap(err, "taking state lock")
		}
		holder, infoErr := s.LockInfo(ctx)
		if infoErr != nil || holder == nil {
			return "", ErrLocked
		}
		return "", &LockedError{Holder: *holder}
	}
	return info.ID, nil
}

func (s *DynamoDBStore) Unlock(ctx context.Context, id string) error {
	_, err := s.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(s.lockKey()),
		ConditionExpression:       aws.String("#id = :id"),
		ExpressionAttributeNames:  map[string]*string{"#id": aws.String("ID")},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{":id": {S: aws.String(id)}},
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrLockNotHeld
		}
		return errors.Wrap(err, "releasing state lock")
	}
	return nil
}

func (s *DynamoDBStore) ForceUnlock(ctx context.Context) error {
	_, err := s.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(s.lockKey()),
	})
	return errors.Wrap(err, "force releasing state lock")
}

func (s *DynamoDBStore) LockInfo(ctx context.Context) (*LockInfo, error) {
	out, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(s.lockKey()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading state lock")
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var item lockItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &LockInfo{ID: item.ID, Operation: item.Operation, Who: item.Who, Created: item.Created}, nil
}

func (s *DynamoDBStore) Read(ctx context.Context) (*Snapshot, error) {
	out, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(s.stateKey()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading state")
	}
	snapshot := NewSnapshot()
	if len(out.Item) == 0 {
		return snapshot, nil
	}
	var item stateItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	if err := decodeSnapshot(item.Body, snapshot); err != nil {
		return nil, err
	}
	snapshot.Serial = item.Serial
	return snapshot, nil
}

func (s *DynamoDBStore) Write(ctx context.Context, lockID string, snapshot *Snapshot) error {
	prepareWrite(snapshot)
	next := snapshot.Clone()
	next.Serial = snapshot.Serial + 1
	body, err := encodeSnapshot(next)
	if err != nil {
		return err
	}
	item, err := dynamodbattribute.MarshalMap(stateItem{
		Key:     s.stateKey(),
		Serial:  next.Serial,
		Lineage: next.Lineage,
		Body:    body,
	})
	if err != nil {
		return err
	}

	serialCondition := "attribute_not_exists(#k) OR #serial = :serial"
	if snapshot.Serial == 0 {
		serialCondition = "attribute_not_exists(#k)"
	}
	put := &dynamodb.Put{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String(serialCondition),
		ExpressionAttributeNames: map[string]*string{
			"#k": aws.String(KeyAttribute),
		},
	}
	if snapshot.Serial != 0 {
		put.ExpressionAttributeNames["#serial"] = aws.String("Serial")
		put.ExpressionAttributeValues = map[string]*dynamodb.AttributeValue{
			":serial": {N: aws.String(strconv.FormatInt(snapshot.Serial, 10))},
		}
	}

	_, err = s.client.TransactWriteItemsWithContext(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []*dynamodb.TransactWriteItem{
			{
				ConditionCheck: &dynamodb.ConditionCheck{
					TableName:                 aws.String(s.table),
					Key:                       s.key(s.lockKey()),
					ConditionExpression:       aws.String("#id = :id"),
					ExpressionAttributeNames:  map[string]*string{"#id": aws.String("ID")},
					ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{":id": {S: aws.String(lockID)}},
				},
			},
			{Put: put},
		},
	})
	if err != nil {
		if canceled, ok := err.(*dynamodb.TransactionCanceledException); ok {
			return cancellationError(canceled)
		}
		return errors.Wrap(err, "writing state")
	}
	log.Debug().Msgf("state %s written with serial %d", s.name, next.Serial)
	snapshot.Serial = next.Serial
	return nil
}

func cancellationError(canceled *dynamodb.TransactionCanceledException) error {
	reasons := canceled.CancellationReasons
	if len(reasons) > 0 && aws.StringValue(reasons[0].Code) == "ConditionalCheckFailed" {
		return ErrLockNotHeld
	}
	if len(reasons) > 1 && aws.StringValue(reasons[1].Code) == "ConditionalCheckFailed" {
		return ErrStaleSerial
	}
	return errors.Wrap(canceled, "writing state")
}
