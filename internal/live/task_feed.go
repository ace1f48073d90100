package live

import (
	"sync"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/events"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
)

const DefaultFeedLength = 50

// TaskFeed keeps the newest tasks of one owner, merging tasks announced on the
// task-created topic while mounted.
type TaskFeed struct {
	topic    *events.Topic[models.Task]
	ownerID  string
	limit    int
	onChange func([]models.Task)

	mu          sync.Mutex
	tasks       []models.Task
	unsubscribe func()
}

// NewTaskFeed starts from initial, newest first. A limit below one means
// DefaultFeedLength. onChange may be nil.
func NewTaskFeed(topic *events.Topic[models.Task], ownerID string, initial []models.Task, limit int, onChange func([]models.Task)) *TaskFeed {
	if limit < 1 {
		limit = DefaultFeedLength
	}
	tasks := make([]models.Task, 0, min(len(initial), limit))
	for _, task := range initial {
		if len(tasks) == limit {
			break
		}
		tasks = append(tasks, task)
	}
	return &TaskFeed{
		topic:    topic,
		ownerID:  ownerID,
		limit:    limit,
		onChange: onChange,
		tasks:    tasks,
	}
}

// Mount starts listening. Tasks created before Mount are not replayed.
func (feed *TaskFeed) Mount() {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.unsubscribe != nil {
		return
	}
	feed.unsubscribe = feed.topic.Subscribe(feed.receive)
}

func (feed *TaskFeed) Unmount() {
	feed.mu.Lock()
	unsubscribe := feed.unsubscribe
	feed.unsubscribe = nil
	feed.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Tasks returns a copy of the current feed, newest first.
func (feed *TaskFeed) Tasks() []models.Task {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	return append([]models.Task(nil), feed.tasks...)
}

func (feed *TaskFeed) receive(task models.Task) {
	if task.UserID != feed.ownerID {
		return
	}

	feed.mu.Lock()
	for _, existing := range feed.tasks {
		if existing.ID == task.ID {
			feed.mu.Unlock()
			return
		}
	}
	merged := make([]models.Task, 0, min(len(feed.tasks)+1, feed.limit))
	merged = append(merged, task)
	for _, existing := range feed.tasks {
		if len(merged) == feed.limit {
			break
		}
		merged = append(merged, existing)
	}
	feed.tasks = merged
	snapshot := append([]models.Task(nil), merged...)
	feed.mu.Unlock()

	if feed.onChange != nil {
		feed.onChange(snapshot)
	}
}
