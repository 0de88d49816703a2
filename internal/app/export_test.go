package service

var PlotExemplars = plotExemplars
