package awstest

import (
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs/cloudwatchlogsiface"
)

type logGroup struct {
	retention *int64
	tags      map[string]*string
}

type Logs struct {
	cloudwatchlogsiface.CloudWatchLogsAPI
	cloud  *Cloud
	groups map[string]*logGroup
}

// SetRetention changes retention behind the provisioner's back.
func (f *Logs) SetRetention(name string, days int64) {
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	f.groups[name].retention = aws.Int64(days)
}

func (f *Logs) missing(name string) error {
	return notFound(cloudwatchlogs.ErrCodeResourceNotFoundException, "log group %s not found", name)
}

func (f *Logs) DescribeLogGroupsPagesWithContext(_ aws.Context, in *cloudwatchlogs.DescribeLogGroupsInput, fn func(*cloudwatchlogs.DescribeLogGroupsOutput, bool) bool, _ ...request.Option) error {
	prefix := aws.StringValue(in.LogGroupNamePrefix)
	f.cloud.mu.Lock()
	var names []string
	for name := range f.groups {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := &cloudwatchlogs.DescribeLogGroupsOutput{}
	for _, name := range names {
		out.LogGroups = append(out.LogGroups, &cloudwatchlogs.LogGroup{
			LogGroupName:    aws.String(name),
			Arn:             aws.String("arn:aws:logs:" + Region + ":" + AccountID + ":log-group:" + name + ":*"),
			RetentionInDays: f.groups[name].retention,
		})
	}
	f.cloud.mu.Unlock()
	fn(out, true)
	return nil
}

func (f *Logs) ListTagsLogGroupWithContext(_ aws.Context, in *cloudwatchlogs.ListTagsLogGroupInput, _ ...request.Option) (*cloudwatchlogs.ListTagsLogGroupOutput, error) {
	name := aws.StringValue(in.LogGroupName)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	group, ok := f.groups[name]
	if !ok {
		return nil, f.missing(name)
	}
	return &cloudwatchlogs.ListTagsLogGroupOutput{Tags: copyTags(group.tags)}, nil
}

func (f *Logs) CreateLogGroupWithContext(_ aws.Context, in *cloudwatchlogs.CreateLogGroupInput, _ ...request.Option) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	name := aws.StringValue(in.LogGroupName)
	f.cloud.record("logs:CreateLogGroup %s", name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.groups[name]; ok {
		return nil, awserr.New(cloudwatchlogs.ErrCodeResourceAlreadyExistsException, "exists", nil)
	}
	f.groups[name] = &logGroup{tags: copyTags(in.Tags)}
	return &cloudwatchlogs.CreateLogGroupOutput{}, nil
}

func (f *Logs) PutRetentionPolicyWithContext(_ aws.Context, in *cloudwatchlogs.PutRetentionPolicyInput, _ ...request.Option) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	name := aws.StringValue(in.LogGroupName)
	f.cloud.record("logs:PutRetentionPolicy %s %d", name, aws.Int64Value(in.RetentionInDays))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	group, ok := f.groups[name]
	if !ok {
		return nil, f.missing(name)
	}
	group.retention = aws.Int64(aws.Int64Value(in.RetentionInDays))
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func (f *Logs) DeleteRetentionPolicyWithContext(_ aws.Context, in *cloudwatchlogs.DeleteRetentionPolicyInput, _ ...request.Option) (*cloudwatchlogs.DeleteRetentionPolicyOutput, error) {
	name := aws.StringValue(in.LogGroupName)
	f.cloud.record("logs:DeleteRetentionPolicy %s", name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	group, ok := f.groups[name]
	if !ok {
		return nil, f.missing(name)
	}
	group.retention = nil
	return &cloudwatchlogs.DeleteRetentionPolicyOutput{}, nil
}

func (f *Logs) TagLogGroupWithContext(_ aws.Context, in *cloudwatchlogs.TagLogGroupInput, _ ...request.Option) (*cloudwatchlogs.TagLogGroupOutput, error) {
	name := aws.StringValue(in.LogGroupName)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	group, ok := f.groups[name]
	if !ok {
		return nil, f.missing(name)
	}
	if group.tags == nil {
		group.tags = map[string]*string{}
	}
	for k, v := range in.Tags {
		group.tags[k] = aws.String(aws.StringValue(v))
	}
	return &cloudwatchlogs.TagLogGroupOutput{}, nil
}

func (f *Logs) DeleteLogGroupWithContext(_ aws.Context, in *cloudwatchlogs.DeleteLogGroupInput, _ ...request.Option) (*cloudwatchlogs.DeleteLogGroupOutput, error) {
	name := aws.StringValue(in.LogGroupName)
	f.cloud.record("logs:DeleteLogGroup %s", name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.groups[name]; !ok {
		return nil, f.missing(name)
	}
	delete(f.groups, name)
	return &cloudwatchlogs.DeleteLogGroupOutput{}, nil
}
