package console

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "console")
