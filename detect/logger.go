package detect

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "detect")
