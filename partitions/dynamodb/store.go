package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dhowell/go-offline-cache/partitions"
)

// Config defines the configuration options for the DynamoDB partition store.
type Config struct {
	Table string
}

// Store implements the partitions.Store interface using Amazon DynamoDB as
// the storage backend. Entries are keyed by a (partition, entry_key)
// composite key so each partition stays isolated while sharing one table.
type Store struct {
	client *dynamodb.Client

	table string
	now   func() time.Time
}

type storedEntry struct {
	Partition string `json:"partition" dynamodbav:"partition"`
	EntryKey  string `json:"entry_key" dynamodbav:"entry_key"`
	Entry     []byte `json:"entry" dynamodbav:"entry"`
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
}

// Match retrieves an entry from DynamoDB by partition and key. Returns
// partitions.ErrNoEntry if the entry doesn't exist.
func (s *Store) Match(ctx context.Context, partition, key string) (*partitions.Entry, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		Key:            entryKey(partition, key),
		ConsistentRead: aws.Bool(true),
		TableName:      aws.String(s.table),
	})
	if err != nil {
		return nil, err
	}

	if output.Item == nil {
		return nil, partitions.ErrNoEntry
	}

	var item storedEntry
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return nil, err
	}

	var entry partitions.Entry
	if err := gobDecode(item.Entry, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// Put stores an entry in DynamoDB under the provided partition and key,
// replacing any previous entry for the same pair.
func (s *Store) Put(ctx context.Context, partition, key string, e *partitions.Entry) error {
	encEntry, err := gobEncode(e)
	if err != nil {
		return err
	}

	item := storedEntry{
		Partition: partition,
		EntryKey:  key,
		Entry:     encEntry,
		CreatedAt: s.now().Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	return err
}

func (s *Store) Delete(ctx context.Context, partition, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       entryKey(partition, key),
	})
	return err
}

// Keys enumerates the keys of one partition with a key-condition query on the
// partition hash key.
func (s *Store) Keys(ctx context.Context, partition string) ([]string, error) {
	var keys []string

	var startKey map[string]types.AttributeValue
	for {
		output, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#p = :p"),
			ExpressionAttributeNames: map[string]string{
				"#p": "partition",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":p": &types.AttributeValueMemberS{Value: partition},
			},
			ProjectionExpression: aws.String("entry_key"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return nil, err
		}

		for _, item := range output.Items {
			var e storedEntry
			if err := attributevalue.UnmarshalMap(item, &e); err != nil {
				return nil, err
			}
			keys = append(keys, e.EntryKey)
		}

		if output.LastEvaluatedKey == nil {
			break
		}
		startKey = output.LastEvaluatedKey
	}

	return keys, nil
}

// Partitions enumerates distinct partition names with a projected scan.
func (s *Store) Partitions(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var names []string

	var startKey map[string]types.AttributeValue
	for {
		output, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(s.table),
			ProjectionExpression: aws.String("#p"),
			ExpressionAttributeNames: map[string]string{
				"#p": "partition",
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}

		for _, item := range output.Items {
			var e storedEntry
			if err := attributevalue.UnmarshalMap(item, &e); err != nil {
				return nil, err
			}
			if _, dup := seen[e.Partition]; dup {
				continue
			}
			seen[e.Partition] = struct{}{}
			names = append(names, e.Partition)
		}

		if output.LastEvaluatedKey == nil {
			break
		}
		startKey = output.LastEvaluatedKey
	}

	return names, nil
}

// DeletePartition removes every entry under the partition hash key.
func (s *Store) DeletePartition(ctx context.Context, partition string) error {
	keys, err := s.Keys(ctx, partition)
	if err != nil {
		return err
	}

	for _, k := range keys {
		if err := s.Delete(ctx, partition, k); err != nil {
			return err
		}
	}
	return nil
}

func entryKey(partition, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"partition": &types.AttributeValueMemberS{Value: partition},
		"entry_key": &types.AttributeValueMemberS{Value: key},
	}
}

// New creates a new DynamoDB partition store with the provided configuration.
// Returns an error if the client is nil or the table name is missing.
func New(_ context.Context, client *dynamodb.Client, config *Config) (*Store, error) {
	if client == nil {
		return nil, partitions.ValidationError{
			Reason: "nil client",
		}
	}

	if config == nil || config.Table == "" {
		return nil, partitions.ValidationError{
			Reason: "missing table name",
		}
	}

	return &Store{
		client: client,

		table: config.Table,
		now:   time.Now,
	}, nil
}
