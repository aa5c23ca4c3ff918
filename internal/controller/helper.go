package controller

import (
	"fmt"
	"time"
)

func (c *controller) generateTimeBasedId() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMicro(), c.rnd.GenerateRandomString(6))
}
