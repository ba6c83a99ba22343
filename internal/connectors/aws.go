package connectors

import (
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials/stscreds"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs/cloudwatchlogsiface"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/aws/aws-sdk-go/service/eks/eksiface"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/aws/aws-sdk-go/service/elb/elbiface"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/aws/aws-sdk-go/service/elbv2/elbv2iface"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"

	"ekscd/internal/env"
)

type SAwsSession struct {
	sync.RWMutex
	Session  *session.Session
	EKS      eksiface.EKSAPI
	IAM      iamiface.IAMAPI
	Logs     cloudwatchlogsiface.CloudWatchLogsAPI
	DynamoDB dynamodbiface.DynamoDBAPI
	ELB      elbiface.ELBAPI
	ELBV2    elbv2iface.ELBV2API
	STS      stsiface.STSAPI

	initialized bool
}

var awsSession SAwsSession

func GetAWSSession() *SAwsSession {
	awsSession.RLock()
	ready := awsSession.initialized
	awsSession.RUnlock()
	if ready {
		return &awsSession
	}

	awsSession.Lock()
	defer awsSession.Unlock()
	if !awsSession.initialized {
		awsSession.Session = newSession(env.Config.Region, env.Config.Profile)
		awsSession.EKS = eks.New(awsSession.Session)
		awsSession.IAM = iam.New(awsSession.Session)
		awsSession.Logs = cloudwatchlogs.New(awsSession.Session)
		awsSession.DynamoDB = dynamodb.New(awsSession.Session)
		awsSession.ELB = elb.New(awsSession.Session)
		awsSession.ELBV2 = elbv2.New(awsSession.Session)
		awsSession.STS = sts.New(awsSession.Session)
		awsSession.initialized = true
	}
	return &awsSession
}

// SetAWSSession replaces the service clients, used by tests to install mocks.
func SetAWSSession(clients *SAwsSession) (restore func()) {
	awsSession.Lock()
	defer awsSession.Unlock()

	previous := SAwsSession{
		Session:  awsSession.Session,
		EKS:      awsSession.EKS,
		IAM:      awsSession.IAM,
		Logs:     awsSession.Logs,
		DynamoDB: awsSession.DynamoDB,
		ELB:      awsSession.ELB,
		ELBV2:    awsSession.ELBV2,
		STS:      awsSession.STS,

		initialized: awsSession.initialized,
	}
	awsSession.Session = clients.Session
	awsSession.EKS = clients.EKS
	awsSession.IAM = clients.IAM
	awsSession.Logs = clients.Logs
	awsSession.DynamoDB = clients.DynamoDB
	awsSession.ELB = clients.ELB
	awsSession.ELBV2 = clients.ELBV2
	awsSession.STS = clients.STS
	awsSession.initialized = true

	return func() {
		awsSession.Lock()
		defer awsSession.Unlock()
		awsSession.Session = previous.Session
		awsSession.EKS = previous.EKS
		awsSession.IAM = previous.IAM
		awsSession.Logs = previous.Logs
		awsSession.DynamoDB = previous.DynamoDB
		awsSession.ELB = previous.ELB
		awsSession.ELBV2 = previous.ELBV2
		awsSession.STS = previous.STS
		awsSession.initialized = previous.initialized
	}
}

func newSession(region, profile string) *session.Session {
	config := aws.NewConfig()
	if region != "" {
		config = config.WithRegion(region)
	}
	config = config.WithCredentialsChainVerboseErrors(true)

	opts := session.Options{
		Config:                  *config,
		Profile:                 profile,
		SharedConfigState:       session.SharedConfigEnable,
		AssumeRoleTokenProvider: stscreds.StdinTokenProvider,
	}

	return session.Must(session.NewSessionWithOptions(opts))
}
