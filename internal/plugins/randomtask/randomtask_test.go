package randomtask

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggeorg0/life-assistant/pkg/notion"
)

type fakeTasks struct {
	tasks      []notion.Task
	archived   []string
	unarchived []string
	done       []string
	doneErr    error
}

func (f *fakeTasks) CurrentTasks(ctx context.Context) ([]notion.Task, error) {
	return f.tasks, nil
}

func (f *fakeTasks) ArchivePage(ctx context.Context, id string) error {
	f.archived = append(f.archived, id)
	return nil
}

func (f *fakeTasks) UnarchivePage(ctx context.Context, id string) error {
	f.unarchived = append(f.unarchived, id)
	return nil
}

func (f *fakeTasks) LogDone(ctx context.Context, title string) error {
	if f.doneErr != nil {
		return f.doneErr
	}
	f.done = append(f.done, title)
	return nil
}

func createTestPlugin(tasks *fakeTasks) *Plugin {
	return New(tasks, rand.New(rand.NewPCG(7, 7)))
}

func TestPickCompleteRestore(t *testing.T) {
	tasks := &fakeTasks{tasks: []notion.Task{{ID: "t1", Title: "Read <Go> book"}}}
	p := createTestPlugin(tasks)
	ctx := context.Background()

	res, err := p.pick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Read &lt;Go&gt; book", res.Message)

	res, err = p.complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The task &#34;Read &lt;Go&gt; book&#34; is archived!", res.Message)
	assert.Equal(t, []string{"t1"}, tasks.archived)
	assert.Equal(t, []string{"Read <Go> book"}, tasks.done)

	res, err = p.restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The task is back!", res.Message)
	assert.Equal(t, []string{"t1"}, tasks.unarchived)
}

func TestNoLastTask(t *testing.T) {
	tasks := &fakeTasks{}
	p := createTestPlugin(tasks)

	res, err := p.complete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, noLastTask, res.Message)

	res, err = p.restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, noLastTask, res.Message)

	assert.Empty(t, tasks.archived)
	assert.Empty(t, tasks.unarchived)
}

func TestNoCurrentTasks(t *testing.T) {
	res, err := createTestPlugin(&fakeTasks{}).pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "There are no current tasks!", res.Message)
}

func TestPickStaysWithinList(t *testing.T) {
	tasks := &fakeTasks{tasks: []notion.Task{{ID: "a", Title: "a"}, {ID: "b", Title: "b"}, {ID: "c", Title: "c"}}}
	p := createTestPlugin(tasks)

	for i := 0; i < 20; i++ {
		res, err := p.pick(context.Background())
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b", "c"}, res.Message)

		last, ok := p.lastTask()
		require.True(t, ok)
		assert.Equal(t, res.Message, last.ID)
	}
}

func TestDoneListFailureIsReported(t *testing.T) {
	tasks := &fakeTasks{tasks: []notion.Task{{ID: "t1", Title: "x"}}, doneErr: errors.New("no access")}
	p := createTestPlugin(tasks)

	_, err := p.pick(context.Background())
	require.NoError(t, err)
	res, err := p.complete(context.Background())
	require.NoError(t, err)

	assert.Contains(t, res.Message, "could not be added to the done list")
	assert.Equal(t, []string{"t1"}, tasks.archived)
}
