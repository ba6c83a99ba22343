package cluster

import (
	"context"

	"ekscd/internal/aws/cloudwatch"
	"ekscd/internal/cluster"
)

const ResourceTypeLogGroup = "log_group"

type logGroupState struct {
	RetentionDays int
}

type LogGroup struct {
	Name          string
	RetentionDays int

	deployed *cloudwatch.LogGroup
}

func (l *LogGroup) ResourceType() string {
	return ResourceTypeLogGroup
}

func (l *LogGroup) ResourceName() string {
	return l.Name
}

func (l *LogGroup) Tags() cluster.Tags {
	return cluster.GetResourceVersionTag(l.TargetVersion())
}

func (l *LogGroup) Fetch(ctx context.Context) error {
	deployed, err := cloudwatch.GetLogGroup(ctx, l.Name)
	if err != nil {
		return err
	}
	l.deployed = deployed
	return nil
}

func (l *LogGroup) DeployedVersion() string {
	if l.deployed == nil {
		return ""
	}
	return cluster.SpecHash(logGroupState{RetentionDays: l.deployed.RetentionDays})
}

func (l *LogGroup) TargetVersion() string {
	return cluster.SpecHash(logGroupState{RetentionDays: l.RetentionDays})
}

func (l *LogGroup) LiveTags() cluster.Tags {
	if l.deployed == nil {
		return nil
	}
	return l.deployed.Tags
}

func (l *LogGroup) ResourceID() string {
	if l.deployed == nil {
		return ""
	}
	return l.deployed.Arn
}

func (l *LogGroup) Create(ctx context.Context, tags cluster.Tags) error {
	if err := cloudwatch.CreateLogGroup(ctx, l.Name, l.RetentionDays, tags); err != nil {
		return err
	}
	return l.Fetch(ctx)
}

func (l *LogGroup) Update(ctx context.Context, tags cluster.Tags) error {
	if err := cloudwatch.SetRetention(ctx, l.Name, l.RetentionDays); err != nil {
		return err
	}
	if err := cloudwatch.TagLogGroup(ctx, l.Name, tags); err != nil {
		return err
	}
	return l.Fetch(ctx)
}

func (l *LogGroup) Delete(ctx context.Context) error {
	return cloudwatch.DeleteLogGroup(ctx, l.Name)
}
