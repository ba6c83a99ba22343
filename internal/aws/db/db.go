package db

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/rs/zerolog/log"

	"ekscd/internal/aws/common"
	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
	"ekscd/internal/logging"
)

func toDynamoDbTags(tags cluster.Tags) (ret []*dynamodb.Tag) {
	for _, k := range tags.Keys() {
		ret = append(ret, &dynamodb.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return
}

// TableExists reports whether the table exists, whatever its status.
func TableExists(ctx context.Context, tableName string) (bool, error) {
	svc := connectors.GetAWSSession().DynamoDB
	_, err := svc.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
	if err != nil {
		if common.IsErrorCode(err, dynamodb.ErrCodeResourceNotFoundException) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateTable creates a pay per request table with a single string hash key and
// waits until it is active. An existing table is left untouched.
func CreateTable(ctx context.Context, tableName, hashKey string, tags cluster.Tags) error {
	exists, err := TableExists(ctx, tableName)
	if err != nil {
		return err
	}
	if exists {
		logging.UserInfo("Table %s already exists", tableName)
		return nil
	}

	svc := connectors.GetAWSSession().DynamoDB
	_, err = svc.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String(hashKey),
				AttributeType: aws.String(dynamodb.ScalarAttributeTypeS),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String(hashKey),
				KeyType:       aws.String(dynamodb.KeyTypeHash),
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		TableName:   aws.String(tableName),
		Tags:        toDynamoDbTags(tags),
		SSESpecification: &dynamodb.SSESpecification{
			Enabled: aws.Bool(true),
		},
	})
	if err != nil {
		log.Debug().Msg("Failed creating table")
		return err
	}

	logging.UserProgress("Waiting for table \"%s\" to be created ...", tableName)
	err = svc.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return err
	}

	logging.UserProgress("Table %s was created successfully!", tableName)
	return nil
}

func DeleteTable(ctx context.Context, tableName string) error {
	svc := connectors.GetAWSSession().DynamoDB
	_, err := svc.DeleteTableWithContext(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		if !common.IsErrorCode(err, dynamodb.ErrCodeResourceNotFoundException) {
			return err
		}
	} else {
		log.Debug().Msgf("DB %s was deleted successfully", tableName)
	}
	return nil
}
