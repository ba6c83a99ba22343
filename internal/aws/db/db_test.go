package db

import (
	"bytes"
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
	"ekscd/internal/logging"
)

type mockDynamoDB struct {
	dynamodbiface.DynamoDBAPI
	exists  bool
	created *dynamodb.CreateTableInput
	waited  bool
}

func (m *mockDynamoDB) DescribeTableWithContext(aws.Context, *dynamodb.DescribeTableInput, ...request.Option) (*dynamodb.DescribeTableOutput, error) {
	if !m.exists {
		return nil, awserr.New(dynamodb.ErrCodeResourceNotFoundException, "not found", nil)
	}
	return &dynamodb.DescribeTableOutput{Table: &dynamodb.TableDescription{TableStatus: aws.String("ACTIVE")}}, nil
}

func (m *mockDynamoDB) CreateTableWithContext(_ aws.Context, in *dynamodb.CreateTableInput, _ ...request.Option) (*dynamodb.CreateTableOutput, error) {
	m.created = in
	return &dynamodb.CreateTableOutput{}, nil
}

func (m *mockDynamoDB) WaitUntilTableExistsWithContext(aws.Context, *dynamodb.DescribeTableInput, ...request.WaiterOption) error {
	m.waited = true
	return nil
}

func TestCreateTable(t *testing.T) {
	var out bytes.Buffer
	previous := logging.Output
	logging.Output = &out
	defer func() { logging.Output = previous }()

	mock := &mockDynamoDB{}
	restore := connectors.SetAWSSession(&connectors.SAwsSession{DynamoDB: mock})
	defer restore()

	require.NoError(t, CreateTable(context.Background(), "ekscd-state", "Key", cluster.Tags{"b": "2", "a": "1"}))
	require.NotNil(t, mock.created)
	assert.True(t, mock.waited)
	assert.Equal(t, dynamodb.BillingModePayPerRequest, aws.StringValue(mock.created.BillingMode))
	assert.Equal(t, "Key", aws.StringValue(mock.created.KeySchema[0].AttributeName))
	assert.Equal(t, "a", aws.StringValue(mock.created.Tags[0].Key))

	existing := &mockDynamoDB{exists: true}
	connectors.SetAWSSession(&connectors.SAwsSession{DynamoDB: existing})
	require.NoError(t, CreateTable(context.Background(), "ekscd-state", "Key", nil))
	assert.Nil(t, existing.created)
	assert.Contains(t, out.String(), "already exists")
}
