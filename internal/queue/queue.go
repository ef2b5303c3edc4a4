package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Consilium/internal/domain"
)

// Queue — брокер workflow-сообщений.
//
// Предоставляет:
//   - FIFO-очередь на роль с блокирующим pop (competing consumers)
//   - completion-канал на workflow с блокирующим ожиданием
//   - dead-letter очередь на роль для сообщений, исчерпавших retry
//   - маркер активной роли workflow (TTL ~1h, только наблюдаемость)
//
// Прикладных блокировок нет: атомарность обеспечивают операции брокера.
// Сообщение снимается с очереди атомарно (ack при получении), поэтому
// несколько экземпляров воркера одной роли могут работать параллельно.
type Queue struct {
	conn    *Connection
	logger  *slog.Logger
	roleIDs []string

	mu        sync.Mutex
	consumers map[string]*consumer
}

// consumer — выделенный канал с активной подпиской на одну очередь.
type consumer struct {
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
}

// DepthInfo — глубины очередей одной роли.
type DepthInfo struct {
	// Ready — сообщения, ожидающие обработки.
	Ready int `json:"ready"`

	// DeadLettered — сообщения в dead-letter очереди.
	DeadLettered int `json:"dead_lettered"`
}

// deadLetterEntry — запись в dead-letter очереди: сообщение плюс
// метаданные отказа. Не потребляется автоматически, только для разбора
// оператором.
type deadLetterEntry struct {
	Message  *domain.WorkflowMessage `json:"message"`
	Error    string                  `json:"error"`
	FailedAt time.Time               `json:"failed_at"`
}

// New создаёт Queue и объявляет топологию для указанных ролей.
func New(conn *Connection, logger *slog.Logger, roleIDs []string) (*Queue, error) {
	if err := EnsureTopology(conn, roleIDs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Queue{
		conn:      conn,
		logger:    logger,
		roleIDs:   roleIDs,
		consumers: make(map[string]*consumer),
	}, nil
}

// Push добавляет сообщение в очередь роли и обновляет маркер активной
// роли workflow. FIFO гарантируется внутри очереди одной роли.
func (q *Queue) Push(ctx context.Context, roleID string, msg *domain.WorkflowMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal workflow message: %w", err)
	}

	ch := q.conn.Channel()
	if ch == nil {
		return fmt.Errorf("%w: no channel", ErrUnavailable)
	}

	err = ch.PublishWithContext(ctx,
		ExchangeRoles, // exchange
		roleID,        // routing key
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт брокера
			MessageId:    uuid.New().String(),
			Timestamp:    msg.Metadata.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: push to role %s: %v", ErrUnavailable, roleID, err)
	}

	// Маркер — только для наблюдаемости; его сбой не должен ронять push.
	if err := q.refreshActiveRole(ctx, msg.WorkflowID, roleID); err != nil {
		q.logger.Warn("failed to refresh active role marker",
			"workflow_id", msg.WorkflowID,
			"role", roleID,
			"error", err,
		)
	}

	q.logger.Debug("pushed workflow message",
		"workflow_id", msg.WorkflowID,
		"role", roleID,
		"step", msg.Metadata.Step,
		"retry_count", msg.Metadata.RetryCount,
	)

	return nil
}

// PopBlocking снимает самое старое сообщение очереди роли, блокируясь
// до timeout. По таймауту возвращает (nil, nil) — это не ошибка, а точка
// кооперативной остановки воркера. timeout <= 0 блокирует бессрочно.
func (q *Queue) PopBlocking(ctx context.Context, roleID string, timeout time.Duration) (*domain.WorkflowMessage, error) {
	cons, err := q.consumer(roleQueue(roleID), nil)
	if err != nil {
		return nil, err
	}

	delivery, ok, err := q.receive(ctx, cons, roleQueue(roleID), timeout)
	if err != nil || !ok {
		return nil, err
	}

	var msg domain.WorkflowMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		q.logger.Error("malformed workflow message, dead-lettering",
			"role", roleID,
			"error", err,
		)
		// nack без requeue — очередь роли настроена на DLQ.
		_ = delivery.Nack(false, false)
		return nil, nil
	}

	// ack при получении: сообщение снято с очереди атомарно.
	if err := delivery.Ack(false); err != nil {
		return nil, fmt.Errorf("%w: ack: %v", ErrUnavailable, err)
	}

	return &msg, nil
}

// PublishCompletion публикует событие статуса в completion-канал workflow.
func (q *Queue) PublishCompletion(ctx context.Context, workflowID uuid.UUID, completion *domain.WorkflowCompletion) error {
	body, err := json.Marshal(completion)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}

	ch := q.conn.Channel()
	if ch == nil {
		return fmt.Errorf("%w: no channel", ErrUnavailable)
	}

	// Канал workflow создаётся по требованию и истекает по TTL.
	if _, err := ch.QueueDeclare(completionQueue(workflowID), true, false, false, false, workflowQueueArgs()); err != nil {
		return fmt.Errorf("%w: declare completion queue: %v", ErrUnavailable, err)
	}

	err = ch.PublishWithContext(ctx,
		"", // default exchange — routing key равен имени очереди
		completionQueue(workflowID),
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.New().String(),
			Timestamp:   completion.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: publish completion: %v", ErrUnavailable, err)
	}

	return nil
}

// WaitCompletion блокирующе ждёт следующее completion-событие workflow
// до timeout. По таймауту возвращает (nil, nil).
func (q *Queue) WaitCompletion(ctx context.Context, workflowID uuid.UUID, timeout time.Duration) (*domain.WorkflowCompletion, error) {
	name := completionQueue(workflowID)

	cons, err := q.consumer(name, func(ch *amqp.Channel) error {
		_, err := ch.QueueDeclare(name, true, false, false, false, workflowQueueArgs())
		return err
	})
	if err != nil {
		return nil, err
	}

	delivery, ok, err := q.receive(ctx, cons, name, timeout)
	if err != nil || !ok {
		return nil, err
	}

	var completion domain.WorkflowCompletion
	if err := json.Unmarshal(delivery.Body, &completion); err != nil {
		_ = delivery.Nack(false, false)
		return nil, fmt.Errorf("unmarshal completion: %w", err)
	}

	if err := delivery.Ack(false); err != nil {
		return nil, fmt.Errorf("%w: ack: %v", ErrUnavailable, err)
	}

	return &completion, nil
}

// DeadLetter помещает сообщение с метаданными отказа в dead-letter
// очередь роли.
func (q *Queue) DeadLetter(ctx context.Context, roleID string, msg *domain.WorkflowMessage, cause error) error {
	entry := deadLetterEntry{
		Message:  msg,
		FailedAt: time.Now().UTC(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead-letter entry: %w", err)
	}

	ch := q.conn.Channel()
	if ch == nil {
		return fmt.Errorf("%w: no channel", ErrUnavailable)
	}

	err = ch.PublishWithContext(ctx,
		ExchangeDLQ,
		roleID,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.New().String(),
			Timestamp:    entry.FailedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: dead-letter for role %s: %v", ErrUnavailable, roleID, err)
	}

	q.logger.Warn("message dead-lettered",
		"workflow_id", msg.WorkflowID,
		"role", roleID,
		"retry_count", msg.Metadata.RetryCount,
		"error", entry.Error,
	)

	return nil
}

// ActiveRole возвращает маркер активной роли workflow.
// Пустая строка — маркер отсутствует (workflow завершён или маркер истёк).
func (q *Queue) ActiveRole(ctx context.Context, workflowID uuid.UUID) (string, error) {
	ch, err := q.conn.OpenChannel()
	if err != nil {
		return "", err
	}
	defer ch.Close()

	// Декларация идемпотентна и защищает Get от отсутствующей очереди.
	if _, err := ch.QueueDeclare(activeRoleQueue(workflowID), false, false, false, false, activeRoleQueueArgs()); err != nil {
		return "", fmt.Errorf("%w: declare marker queue: %v", ErrUnavailable, err)
	}

	delivery, ok, err := ch.Get(activeRoleQueue(workflowID), false)
	if err != nil {
		return "", fmt.Errorf("%w: read marker: %v", ErrUnavailable, err)
	}
	if !ok {
		return "", nil
	}

	// Возвращаем маркер на место.
	_ = delivery.Reject(true)

	return string(delivery.Body), nil
}

// Depth возвращает глубины очередей роли.
func (q *Queue) Depth(ctx context.Context, roleID string) (DepthInfo, error) {
	ch := q.conn.Channel()
	if ch == nil {
		return DepthInfo{}, fmt.Errorf("%w: no channel", ErrUnavailable)
	}

	work, err := ch.QueueInspect(roleQueue(roleID))
	if err != nil {
		return DepthInfo{}, fmt.Errorf("%w: inspect %s: %v", ErrUnavailable, roleQueue(roleID), err)
	}

	dlq, err := ch.QueueInspect(deadLetterQueue(roleID))
	if err != nil {
		return DepthInfo{}, fmt.Errorf("%w: inspect %s: %v", ErrUnavailable, deadLetterQueue(roleID), err)
	}

	return DepthInfo{Ready: work.Messages, DeadLettered: dlq.Messages}, nil
}

// AllDepths возвращает глубины очередей всех ролей топологии.
func (q *Queue) AllDepths(ctx context.Context) (map[string]DepthInfo, error) {
	depths := make(map[string]DepthInfo, len(q.roleIDs))
	for _, roleID := range q.roleIDs {
		info, err := q.Depth(ctx, roleID)
		if err != nil {
			return nil, err
		}
		depths[roleID] = info
	}
	return depths, nil
}

// CleanupWorkflow удаляет completion-канал и маркер активной роли
// завершённого workflow. Идемпотентна: повторный вызов — no-op.
func (q *Queue) CleanupWorkflow(ctx context.Context, workflowID uuid.UUID) error {
	q.dropConsumer(completionQueue(workflowID))

	ch, err := q.conn.OpenChannel()
	if err != nil {
		return err
	}
	defer ch.Close()

	// declare-then-delete: удаление отсутствующей очереди закрыло бы канал,
	// поэтому сначала идемпотентно объявляем её заново.
	cleanups := []struct {
		name string
		args amqp.Table
	}{
		{completionQueue(workflowID), workflowQueueArgs()},
		{activeRoleQueue(workflowID), activeRoleQueueArgs()},
	}

	for _, c := range cleanups {
		durable := c.name == completionQueue(workflowID)
		if _, err := ch.QueueDeclare(c.name, durable, false, false, false, c.args); err != nil {
			return fmt.Errorf("%w: declare %s: %v", ErrUnavailable, c.name, err)
		}
		if _, err := ch.QueueDelete(c.name, false, false, false); err != nil {
			return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, c.name, err)
		}
	}

	q.logger.Debug("workflow state cleaned up", "workflow_id", workflowID)
	return nil
}

// IsConnected сообщает, живо ли соединение с брокером (для health probe).
func (q *Queue) IsConnected() bool {
	return q.conn.IsConnected()
}

// Close закрывает кэшированные каналы потребителей.
// Соединением владеет вызывающий.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for name, cons := range q.consumers {
		_ = cons.ch.Close()
		delete(q.consumers, name)
	}
}

// consumer возвращает (или создаёт) подписку на очередь.
// declare, если задан, выполняется на выделенном канале до подписки.
func (q *Queue) consumer(queueName string, declare func(*amqp.Channel) error) (*consumer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cons, ok := q.consumers[queueName]; ok {
		return cons, nil
	}

	ch, err := q.conn.OpenChannel()
	if err != nil {
		return nil, err
	}

	if declare != nil {
		if err := declare(ch); err != nil {
			ch.Close()
			return nil, fmt.Errorf("%w: declare %s: %v", ErrUnavailable, queueName, err)
		}
	}

	// prefetch 1: брокер выдаёт по одному сообщению, pop остаётся атомарным.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: set qos: %v", ErrUnavailable, err)
	}

	deliveries, err := ch.Consume(
		queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (ack вручную при pop)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: consume %s: %v", ErrUnavailable, queueName, err)
	}

	cons := &consumer{ch: ch, deliveries: deliveries}
	q.consumers[queueName] = cons
	return cons, nil
}

// receive ждёт одну доставку из подписки до timeout.
// Возвращает ok=false по таймауту. Закрытый канал доставки означает
// разрыв соединения: подписка сбрасывается, вызывающий повторит операцию.
func (q *Queue) receive(ctx context.Context, cons *consumer, queueName string, timeout time.Duration) (amqp.Delivery, bool, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-ctx.Done():
		return amqp.Delivery{}, false, ctx.Err()

	case <-timer:
		return amqp.Delivery{}, false, nil

	case delivery, ok := <-cons.deliveries:
		if !ok {
			q.dropConsumer(queueName)
			return amqp.Delivery{}, false, fmt.Errorf("%w: deliveries channel closed", ErrUnavailable)
		}
		return delivery, true, nil
	}
}

// dropConsumer закрывает и забывает подписку на очередь.
func (q *Queue) dropConsumer(queueName string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cons, ok := q.consumers[queueName]; ok {
		_ = cons.ch.Close()
		delete(q.consumers, queueName)
	}
}

// refreshActiveRole публикует маркер активной роли workflow.
// Очередь-маркер хранит одно сообщение: новый маркер вытесняет старый.
func (q *Queue) refreshActiveRole(ctx context.Context, workflowID uuid.UUID, roleID string) error {
	ch := q.conn.Channel()
	if ch == nil {
		return fmt.Errorf("%w: no channel", ErrUnavailable)
	}

	if _, err := ch.QueueDeclare(activeRoleQueue(workflowID), false, false, false, false, activeRoleQueueArgs()); err != nil {
		return fmt.Errorf("%w: declare marker queue: %v", ErrUnavailable, err)
	}

	err := ch.PublishWithContext(ctx,
		"",
		activeRoleQueue(workflowID),
		false, false,
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(roleID),
		},
	)
	if err != nil {
		return fmt.Errorf("%w: publish marker: %v", ErrUnavailable, err)
	}

	return nil
}
