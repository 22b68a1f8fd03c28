package daemon

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/paperwx/paperwx/pkg/config"
	"github.com/paperwx/paperwx/pkg/version"
)

func getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, controller.snapshot.status(conf.KeepAwake(), time.Now()))
}

func getState(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, controller.snapshot.state())
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getKeepAwake(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, conf.KeepAwake())
}

func setKeepAwake(c *gin.Context) {
	var enabled bool
	if err := c.BindJSON(&enabled); err != nil {
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetKeepAwake(enabled)
	if err := conf.Save(); err != nil {
		logrus.Errorf("failed to save config: %v", err)
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// Takes effect at the next cycle boundary; the current cycle's
	// decisions stand.
	c.IndentedJSON(http.StatusCreated, "keep-awake set to "+strconv.FormatBool(enabled))
	logrus.Infof("keep-awake set to %t", enabled)
}

func setRefreshMinutes(c *gin.Context) {
	var minutes int
	if err := c.BindJSON(&minutes); err != nil {
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if minutes < 1 || minutes > 24*60 {
		_ = c.AbortWithError(http.StatusBadRequest,
			errInvalidRefreshMinutes(minutes))
		return
	}

	conf.SetRefreshMinutes(minutes)
	if err := conf.Save(); err != nil {
		logrus.Errorf("failed to save config: %v", err)
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, "refresh interval set to "+strconv.Itoa(minutes)+" minutes")
	logrus.Infof("refresh interval set to %d minutes", minutes)
}

func triggerRefresh(c *gin.Context) {
	controller.TriggerCycle()
	c.IndentedJSON(http.StatusAccepted, "refresh triggered")
	logrus.Info("manual refresh triggered")
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// getEvents streams cycle-phase transitions as server-sent events until
// the client disconnects.
func getEvents(c *gin.Context) {
	ch := controller.Events.Subscribe()
	defer controller.Events.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
