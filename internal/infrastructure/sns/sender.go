package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/notify-dapp/internal/config"
	"github.com/notify-dapp/internal/domain"
	"github.com/notify-dapp/internal/infrastructure/awscfg"
)

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// StatusNotifier publishes terminal attempt statuses to a topic so other
// systems learn about sent and failed notifications. Intermediate stages
// are not published.
type StatusNotifier struct {
	client   publishAPI
	topicARN string
}

// NewClient creates an SNS client in cfg.SNSRegion.
func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	endpoint := awscfg.Endpoint(cfg)
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	}), nil
}

func NewStatusNotifier(client publishAPI, topicARN string) *StatusNotifier {
	return &StatusNotifier{client: client, topicARN: topicARN}
}

func (n *StatusNotifier) Put(ctx context.Context, s domain.Status) error {
	if !s.Stage.Terminal() {
		return nil
	}
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("notification " + string(s.Stage)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"stage": {DataType: aws.String("String"), StringValue: aws.String(string(s.Stage))},
			"type":  {DataType: aws.String("String"), StringValue: aws.String(s.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", s.AttemptID, err)
	}
	return nil
}
