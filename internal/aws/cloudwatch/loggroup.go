package cloudwatch

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/rs/zerolog/log"

	"ekscd/internal/aws/common"
	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
)

type LogGroup struct {
	Name string
	Arn  string
	// RetentionDays is 0 when events never expire.
	RetentionDays int
	Tags          cluster.Tags
}

// GetLogGroup returns nil when the log group does not exist.
func GetLogGroup(ctx context.Context, name string) (*LogGroup, error) {
	svc := connectors.GetAWSSession().Logs
	var found *cloudwatchlogs.LogGroup
	err := svc.DescribeLogGroupsPagesWithContext(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(name),
	}, func(page *cloudwatchlogs.DescribeLogGroupsOutput, lastPage bool) bool {
		for _, group := range page.LogGroups {
			if aws.StringValue(group.LogGroupName) == name {
				found = group
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}

	tags, err := svc.ListTagsLogGroupWithContext(ctx, &cloudwatchlogs.ListTagsLogGroupInput{
		LogGroupName: aws.String(name),
	})
	if err != nil {
		return nil, err
	}
	return &LogGroup{
		Name:          name,
		Arn:           aws.StringValue(found.Arn),
		RetentionDays: int(aws.Int64Value(found.RetentionInDays)),
		Tags:          cluster.FromStringRefs(tags.Tags),
	}, nil
}

func CreateLogGroup(ctx context.Context, name string, retentionDays int, tags cluster.Tags) error {
	svc := connectors.GetAWSSession().Logs
	_, err := svc.CreateLogGroupWithContext(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(name),
		Tags:         tags.AsStringRefs(),
	})
	if err != nil {
		return err
	}
	log.Debug().Msgf("log group %s was created successfully!", name)
	return SetRetention(ctx, name, retentionDays)
}

func SetRetention(ctx context.Context, name string, retentionDays int) error {
	svc := connectors.GetAWSSession().Logs
	if retentionDays == 0 {
		_, err := svc.DeleteRetentionPolicyWithContext(ctx, &cloudwatchlogs.DeleteRetentionPolicyInput{
			LogGroupName: aws.String(name),
		})
		return err
	}
	_, err := svc.PutRetentionPolicyWithContext(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(name),
		RetentionInDays: aws.Int64(int64(retentionDays)),
	})
	if err != nil {
		return err
	}
	log.Debug().Msgf("log group %s retention set to %d days", name, retentionDays)
	return nil
}

func TagLogGroup(ctx context.Context, name string, tags cluster.Tags) error {
	svc := connectors.GetAWSSession().Logs
	_, err := svc.TagLogGroupWithContext(ctx, &cloudwatchlogs.TagLogGroupInput{
		LogGroupName: aws.String(name),
		Tags:         tags.AsStringRefs(),
	})
	return err
}

func DeleteLogGroup(ctx context.Context, name string) error {
	svc := connectors.GetAWSSession().Logs
	_, err := svc.DeleteLogGroupWithContext(ctx, &cloudwatchlogs.DeleteLogGroupInput{
		LogGroupName: aws.String(name),
	})
	if err != nil && !common.IsErrorCode(err, cloudwatchlogs.ErrCodeResourceNotFoundException) {
		return err
	}
	log.Debug().Msgf("log group %s was deleted successfully", name)
	return nil
}
