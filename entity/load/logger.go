package load

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "load")
