package logging

import (
	"path/filepath"
	"testing"

	"github.com/DeveloperOl/lespas/common/config"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsHookKeepsEntryFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.AddHook(fieldsHook{fields: logrus.Fields{"process": "gallery_fetch", "media": "unset"}})

	logger.WithField("media", "42").Info("fetching")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "gallery_fetch", entry.Data["process"])
	assert.Equal(t, "42", entry.Data["media"])
}

func TestSetLevel(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	require.NoError(t, SetLevel(""))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.Error(t, SetLevel("chatty"))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestSetupWritesLogFile(t *testing.T) {
	c := config.NewDefaultConfig().General
	c.LogDirectory = t.TempDir()
	require.NoError(t, Setup(c, nil))
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))

	logrus.Info("hello")
	assert.FileExists(t, filepath.Join(c.LogDirectory, logFileName))

	c.LogLevel = "chatty"
	assert.Error(t, Setup(c, nil))
}
