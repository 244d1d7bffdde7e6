package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/shared/tasks"
)

var _ tasks.Queue = (*SQSTaskQueue)(nil)

type sqsDelivery struct {
	Message types.Message
	Task    *tasks.Task
	Err     error
}

// SQSTaskQueue implements tasks.Queue on AWS SQS and runs the consumer
// side of the queue, feeding deliveries to a tasks.Worker. Delivery is
// at-least-once: handlers must tolerate duplicates.
type SQSTaskQueue struct {
	mux      sync.Mutex
	inbound  chan *sqsDelivery
	outbound chan *sqsDelivery
	cancel   context.CancelFunc
	running  atomic.Bool
	options  *sqsQueueOptions

	client   *sqs.Client
	queueURL string
	worker   *tasks.Worker
	logger   *zap.Logger
}

type sqsQueueOptions struct {
	workers                        int32
	readers                        int32
	cleaners                       int32
	maxNumberOfMessages            int32
	waitTimeSeconds                int32
	visibilityTimeout              int32
	sleepTimeAfterEmptyReceive     time.Duration
	sleepTimeAfterError            time.Duration
	extendVisibilityTimeoutOnError bool
	receiveCountRange              int32
	visibilityTimeoutOffset        int32
	maxVisibilityTimeout           int32
}

type SQSQueueOption func(*sqsQueueOptions)

func WithWorkers(workers int32) SQSQueueOption {
	return func(o *sqsQueueOptions) {
		o.workers = workers
	}
}

func WithReaders(readers int32) SQSQueueOption {
	return func(o *sqsQueueOptions) {
		o.readers = readers
	}
}

func WithVisibilityTimeout(timeout int32) SQSQueueOption {
	return func(o *sqsQueueOptions) {
		o.visibilityTimeout = timeout
	}
}

// NewSQSTaskQueue creates a new SQS-backed task queue
func NewSQSTaskQueue(client *sqs.Client, queueURL string, logger *zap.Logger, opts ...SQSQueueOption) *SQSTaskQueue {
	options := &sqsQueueOptions{
		workers:                        10,
		readers:                        1,
		cleaners:                       2,
		maxNumberOfMessages:            5,
		waitTimeSeconds:                15,
		visibilityTimeout:              30,
		sleepTimeAfterEmptyReceive:     10 * time.Second,
		sleepTimeAfterError:            20 * time.Second,
		extendVisibilityTimeoutOnError: true,
		receiveCountRange:              3,
		visibilityTimeoutOffset:        30,
		maxVisibilityTimeout:           900, // 15 minutes
	}

	for _, opt := range opts {
		opt(options)
	}

	return &SQSTaskQueue{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
		inbound:  make(chan *sqsDelivery, 10),
		outbound: make(chan *sqsDelivery, 10),
		options:  options,
	}
}

// NewSQSTaskQueueFromEnv builds an SQS task queue using the ambient AWS
// configuration (works with LocalStack when AWS_ENDPOINT_URL is set).
func NewSQSTaskQueueFromEnv(ctx context.Context, queueURL string, logger *zap.Logger, opts ...SQSQueueOption) (*SQSTaskQueue, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	return NewSQSTaskQueue(sqs.NewFromConfig(cfg), queueURL, logger, opts...), nil
}

// Enqueue implements tasks.Queue
func (q *SQSTaskQueue) Enqueue(ctx context.Context, task *tasks.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "failed to marshal task")
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"task": {
				DataType:    aws.String("String"),
				StringValue: aws.String(task.Name),
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to enqueue task %s", task.Name)
	}
	return nil
}

// Start starts consuming the queue, dispatching deliveries to the worker
func (q *SQSTaskQueue) Start(ctx context.Context, worker *tasks.Worker) error {
	if q.running.Load() {
		return nil
	}

	q.mux.Lock()
	defer q.mux.Unlock()

	q.worker = worker

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < int(q.options.workers); i++ {
		go q.startWorker(ctx)
	}

	for i := 0; i < int(q.options.readers); i++ {
		go q.startReader(ctx)
	}

	for i := 0; i < int(q.options.cleaners); i++ {
		go q.startCleaner(ctx)
	}

	q.running.Store(true)
	return nil
}

// Stop stops the consumer side of the queue
func (q *SQSTaskQueue) Stop() error {
	if !q.running.Load() {
		return nil
	}

	q.mux.Lock()
	defer q.mux.Unlock()

	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}

	q.running.Store(false)
	return nil
}

func (q *SQSTaskQueue) startWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery := <-q.inbound:
			if delivery == nil {
				continue
			}
			q.handle(ctx, delivery)
		}
	}
}

func (q *SQSTaskQueue) startReader(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := q.read(ctx); err != nil {
				q.logger.Warn("sqs receive failed", zap.Error(err))
				time.Sleep(q.options.sleepTimeAfterError)
			}
		}
	}
}

func (q *SQSTaskQueue) startCleaner(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery := <-q.outbound:
			if delivery == nil {
				continue
			}
			if err := q.clean(ctx, delivery); err != nil {
				q.logger.Warn("sqs cleanup failed", zap.Error(err))
			}
		}
	}
}

func (q *SQSTaskQueue) read(ctx context.Context) error {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: q.options.maxNumberOfMessages,
		WaitTimeSeconds:     q.options.waitTimeSeconds,
		VisibilityTimeout:   q.options.visibilityTimeout,
		AttributeNames: []types.QueueAttributeName{
			"ApproximateReceiveCount",
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return errors.Wrap(err, "failed to receive message from SQS")
	}

	if len(output.Messages) == 0 {
		time.Sleep(q.options.sleepTimeAfterEmptyReceive)
		return nil
	}

	for _, message := range output.Messages {
		var task *tasks.Task
		if err := json.Unmarshal([]byte(*message.Body), &task); err != nil {
			q.logger.Error("skipping malformed task message",
				zap.String("message_id", aws.ToString(message.MessageId)),
				zap.Error(err))
			continue
		}

		select {
		case q.inbound <- &sqsDelivery{Message: message, Task: task}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (q *SQSTaskQueue) handle(ctx context.Context, delivery *sqsDelivery) {
	delivery.Err = q.worker.Process(ctx, delivery.Task)

	select {
	case q.outbound <- delivery:
	case <-ctx.Done():
	}
}

func (q *SQSTaskQueue) clean(ctx context.Context, delivery *sqsDelivery) error {
	if delivery.Err != nil {
		// Leave the message in flight so the broker redelivers it; back
		// the visibility timeout off as the receive count grows.
		if q.options.extendVisibilityTimeoutOnError {
			receiveCount, err := strconv.Atoi(delivery.Message.Attributes["ApproximateReceiveCount"])
			if err != nil {
				receiveCount = 1
			}

			visibilityTimeout := q.options.visibilityTimeout
			visibilityTimeout += (int32(receiveCount) / q.options.receiveCountRange) * q.options.visibilityTimeoutOffset

			if visibilityTimeout > q.options.maxVisibilityTimeout {
				visibilityTimeout = q.options.maxVisibilityTimeout
			}

			_, err = q.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
				QueueUrl:          &q.queueURL,
				ReceiptHandle:     delivery.Message.ReceiptHandle,
				VisibilityTimeout: visibilityTimeout,
			})
			if err != nil {
				return errors.Wrap(err, "failed to extend visibility timeout")
			}
		}
		return nil
	}

	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &q.queueURL,
		ReceiptHandle: delivery.Message.ReceiptHandle,
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete message from SQS")
	}

	return nil
}
