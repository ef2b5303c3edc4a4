package queue

import (
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchanges.
const (
	// ExchangeRoles — рабочие сообщения ролей.
	ExchangeRoles = "consilium.roles"

	// ExchangeDLQ — сообщения, исчерпавшие retry.
	ExchangeDLQ = "consilium.dlq"
)

// markerTTLMillis — время жизни очередей workflow (completion и маркер
// активной роли) без активности, миллисекунды. Соответствует TTL ~1h маркера.
const markerTTLMillis = 3600 * 1000

// roleQueue возвращает имя рабочей очереди роли.
func roleQueue(roleID string) string {
	return fmt.Sprintf("role.%s.queue", roleID)
}

// deadLetterQueue возвращает имя dead-letter очереди роли.
func deadLetterQueue(roleID string) string {
	return fmt.Sprintf("role.%s.deadletter", roleID)
}

// completionQueue возвращает имя completion-канала workflow.
func completionQueue(workflowID uuid.UUID) string {
	return fmt.Sprintf("workflow.%s.completion", workflowID)
}

// activeRoleQueue возвращает имя очереди-маркера активной роли workflow.
func activeRoleQueue(workflowID uuid.UUID) string {
	return fmt.Sprintf("workflow.%s.active", workflowID)
}

// workflowQueueArgs — аргументы очередей workflow: очередь удаляется
// брокером после markerTTLMillis без использования.
func workflowQueueArgs() amqp.Table {
	return amqp.Table{"x-expires": int32(markerTTLMillis)}
}

// activeRoleQueueArgs — аргументы очереди-маркера: хранится ровно одно
// сообщение (новый маркер вытесняет старый), очередь истекает по TTL.
func activeRoleQueueArgs() amqp.Table {
	return amqp.Table{
		"x-expires":    int32(markerTTLMillis),
		"x-max-length": int32(1),
		"x-overflow":   "drop-head",
	}
}

// EnsureTopology объявляет exchanges и очереди для указанных ролей.
//
// Вызывается при старте каждого процесса: декларации идемпотентны,
// поэтому порядок запуска процессов не важен.
func EnsureTopology(conn *Connection, roleIDs []string) error {
	ch := conn.Channel()
	if ch == nil {
		return fmt.Errorf("%w: no channel", ErrUnavailable)
	}

	for _, name := range []string{ExchangeRoles, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			name,     // name
			"direct", // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	for _, roleID := range roleIDs {
		if err := declareRoleQueues(ch, roleID); err != nil {
			return err
		}
	}

	return nil
}

// declareRoleQueues объявляет рабочую и dead-letter очереди роли
// и привязывает их к exchanges.
func declareRoleQueues(ch *amqp.Channel, roleID string) error {
	// Некорректные сообщения (nack без requeue) уходят в DLQ роли.
	workArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLQ,
		"x-dead-letter-routing-key": roleID,
	}

	queues := []struct {
		name     string
		exchange string
		args     amqp.Table
	}{
		{roleQueue(roleID), ExchangeRoles, workArgs},
		{deadLetterQueue(roleID), ExchangeDLQ, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.name, // name
			true,   // durable
			false,  // delete when unused
			false,  // exclusive
			false,  // no-wait
			q.args, // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}

		if err := ch.QueueBind(q.name, roleID, q.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", q.name, q.exchange, err)
		}
	}

	return nil
}
