package eks

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/util/wait"

	"ekscd/internal/connectors"
)

var (
	UpdatePollInterval = 15 * time.Second
	UpdateTimeout      = 60 * time.Minute
)

// WaitForUpdate polls an EKS update until it is Successful. nodegroup and addon are
// empty for cluster level updates.
func WaitForUpdate(ctx context.Context, clusterName, nodegroup, addon string, update *eks.Update) error {
	if update == nil {
		return nil
	}
	svc := connectors.GetAWSSession().EKS
	input := &eks.DescribeUpdateInput{
		Name:     aws.String(clusterName),
		UpdateId: update.Id,
	}
	if nodegroup != "" {
		input.NodegroupName = aws.String(nodegroup)
	}
	if addon != "" {
		input.AddonName = aws.String(addon)
	}

	log.Debug().Msgf("waiting for %s update %s on %s", aws.StringValue(update.Type), aws.StringValue(update.Id), clusterName)
	return wait.PollUntilContextTimeout(ctx, UpdatePollInterval, UpdateTimeout, true, func(ctx context.Context) (bool, error) {
		out, err := svc.DescribeUpdateWithContext(ctx, input)
		if err != nil {
			return false, err
		}
		switch aws.StringValue(out.Update.Status) {
		case eks.UpdateStatusSuccessful:
			return true, nil
		case eks.UpdateStatusFailed, eks.UpdateStatusCancelled:
			var details []string
			for _, e := range out.Update.Errors {
				details = append(details, aws.StringValue(e.ErrorCode)+": "+aws.StringValue(e.ErrorMessage))
			}
			return false, errors.Errorf("update %s %s: %s", aws.StringValue(update.Id),
				strings.ToLower(aws.StringValue(out.Update.Status)), strings.Join(details, "; "))
		}
		return false, nil
	})
}
